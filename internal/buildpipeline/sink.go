package buildpipeline

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// FuncSink adapts a function to the ProgressSink interface.
type FuncSink func(Event)

func (f FuncSink) OnEvent(evt Event) {
	if f == nil {
		return
	}
	f(evt)
}

// MultiSink fans every event out to all of its sinks in order.
type MultiSink []ProgressSink

func (m MultiSink) OnEvent(evt Event) {
	for _, sink := range m {
		if sink != nil {
			sink.OnEvent(evt)
		}
	}
}

// CombineSinks joins the non-nil sinks, avoiding a MultiSink wrapper
// when one or none remain.
func CombineSinks(sinks ...ProgressSink) ProgressSink {
	var live []ProgressSink
	for _, sink := range sinks {
		if sink != nil {
			live = append(live, sink)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return MultiSink(live)
}
