package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterh/liner"

	"github.com/Erigara/mv/cmd/mv/cmds"
)

func autocomplete(line string) []string {
	suggests := cmds.Complete(line)
	for i, s := range suggests {
		suggests[i] = s + " "
	}
	return suggests
}

func historyPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".mv_history")
}

func main() {
	cli := liner.NewLiner()
	defer cli.Close()

	cli.SetCompleter(autocomplete)

	history := historyPath()
	if history != "" {
		if f, err := os.Open(history); err == nil {
			cli.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(history); err == nil {
				cli.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Printf(" Type help for usage.\n")

	state := &State{}
	for {
		line, err := cli.Prompt(state.Prompt())
		if err != nil {
			break
		}
		cli.AppendHistory(line)

		result, usage, err := state.Execute(line)
		switch {
		case err != nil:
			fmt.Println("error:", err)
		case result != "":
			fmt.Println("result:", result)
		}
		if usage != "" {
			fmt.Println(usage)
		}
	}
	fmt.Printf("\n")
}
