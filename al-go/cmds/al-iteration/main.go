package main

import (
	"log"

	arg "github.com/alexflint/go-arg"
	"github.com/spf13/afero"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/round"
)

func fail(err error) {
	if err != nil {
		log.Fatalln(err)
	}
}

func main() {
	args := struct {
		Config        string `arg:"required" help:"iteration config JSON"`
		LabeledData   string `arg:"required,--labeled_data" help:"labeled features CSV, optionally with a trailing label column"`
		LabeledLabels string `arg:"--labeled_labels" help:"separate labels CSV; omit when --labeled_data carries the labels"`
		UnlabeledData string `arg:"required,--unlabeled_data" help:"unlabeled pool CSV"`
		ModelIn       string `arg:"--model_in" help:"prior model artifact to resume from, when the output directory has none"`
		Out           string `arg:"required" help:"output directory for round artifacts"`
		Iteration     int    `help:"round number to run; defaults to the next uncommitted round"`
		Workflow      bool   `help:"run rounds until max_iterations or pool exhaustion"`
	}{}
	arg.MustParse(&args)

	fs := afero.NewOsFs()
	cfg, err := config.Load(fs, args.Config)
	fail(err)

	runner := round.NewRunner(fs, cfg, round.Inputs{
		LabeledFeatures: args.LabeledData,
		LabeledLabels:   args.LabeledLabels,
		UnlabeledData:   args.UnlabeledData,
		PriorModel:      args.ModelIn,
	}, args.Out)

	if args.Workflow {
		res, err := runner.RunWorkflow(0)
		fail(err)
		log.Printf("workflow stopped (%s) after %d completed rounds", res.Stopped, len(res.Completed))
		return
	}

	n := args.Iteration
	if n == 0 {
		n = runner.NextRound()
	}
	sum, err := runner.Run(n)
	fail(err)
	fail(runner.WriteResult(sum))
	log.Printf("round %d completed: accuracy=%.3f f1=%.3f labeled=%d queried=%d",
		n, sum.Performance.Accuracy, sum.Performance.F1, sum.LabeledSize, len(sum.QueryIndices))
}
