package main

import (
	"fmt"
	"io"
	"time"

	"anvil/internal/buildpipeline"
)

var timingStages = []buildpipeline.Stage{
	buildpipeline.StageResolve,
	buildpipeline.StagePreOps,
	buildpipeline.StageFolders,
	buildpipeline.StagePrebuilds,
	buildpipeline.StageCompile,
	buildpipeline.StageArchive,
	buildpipeline.StageLink,
	buildpipeline.StageExtract,
	buildpipeline.StagePostOps,
}

func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	if out == nil {
		return
	}
	for _, stage := range timingStages {
		if !timings.Has(stage) {
			continue
		}
		_, _ = fmt.Fprintf(out, "%-10s %.1f ms\n", stage, toMillis(timings.Duration(stage)))
	}
	_, _ = fmt.Fprintf(out, "%-10s %.1f ms\n", "total", toMillis(timings.Sum(timingStages...)))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
