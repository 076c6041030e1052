package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/taxlot/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// Answers shell completion requests and exits, does nothing otherwise.
	completion(commander).Complete("tlx")

	flag.Parse()
	cmd.LoadEnv()
	cmd.SetupLogs()

	if sub := flag.Arg(0); sub != "" && !registered(commander, sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

func registered(commander *subcommands.Commander, name string) bool {
	found := false
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		found = found || c.Name() == name
	})
	return found
}

// completion describes the commands and their flags for shell completion.
func completion(commander *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: predictors(flag.CommandLine),
	}
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(f)
		sub := &complete.Command{Flags: predictors(f)}
		switch c.Name() {
		case "import":
			sub.Args = predict.Files("*.json")
		case "db":
			sub.Args = predict.Set{"push", "report"}
		}
		root.Sub[c.Name()] = sub
	})
	return root
}

func predictors(f *flag.FlagSet) map[string]complete.Predictor {
	res := make(map[string]complete.Predictor)
	f.VisitAll(func(fl *flag.Flag) {
		switch {
		case fl.Name == "method":
			res[fl.Name] = predict.Set{"fifo", "lifo", "specific", "average"}
		case fl.Name == "ledger-file" || fl.Name == "selections-file":
			res[fl.Name] = predict.Files("*.jsonl")
		case fl.Name == "db":
			if isBool(fl) {
				res[fl.Name] = predict.Nothing
			} else {
				res[fl.Name] = predict.Files("*.db")
			}
		case fl.Name == "html" || fl.Name == "o":
			res[fl.Name] = predict.Files("*")
		case fl.Name == "map":
			res[fl.Name] = predict.Files("*.json")
		case isBool(fl):
			res[fl.Name] = predict.Nothing
		default:
			res[fl.Name] = predict.Something
		}
	})
	return res
}

func isBool(fl *flag.Flag) bool {
	b, ok := fl.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}
