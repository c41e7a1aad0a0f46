// Command cmcfetch exercises the bridge exactly as the mobile client does and
// prints the envelope it gets back.
//
//	cmcfetch 'cmc://historical/sol?timeframe=24h&interval=1h&api_key=...'
//	cmcfetch sol 24h [1h]
//	cmcfetch latest
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/Alias1177/coinbridge/internal/endpoint"
	"github.com/Alias1177/coinbridge/internal/ffi"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitNull    = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: cmcfetch <endpoint> | <symbol> <timeframe> [interval] | latest")
		return exitFailure
	}

	var out string
	var ok bool
	switch {
	case strings.HasPrefix(args[0], endpoint.Scheme+"://"):
		out, ok = ffi.Call(args[0])
	case args[0] == "latest":
		out, ok = ffi.CallLatest()
	case len(args) >= 3:
		out, ok = ffi.Call(endpoint.Historical(args[0], args[1], args[2], ffi.DefaultAPIKey()))
	case len(args) == 2:
		out, ok = ffi.CallBySymbol(args[0], args[1])
	default:
		fmt.Fprintln(os.Stderr, "a symbol needs a timeframe")
		return exitFailure
	}

	if !ok {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "bridge returned NULL")
		return exitNull
	}

	fmt.Println(out)
	return summarize(out)
}

func summarize(out string) int {
	var env struct {
		Success  bool              `json:"success"`
		Error    string            `json:"error"`
		Data     []json.RawMessage `json:"data"`
		Symbol   string            `json:"symbol"`
		Interval string            `json:"interval"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		color.Red("unreadable envelope: %v", err)
		return exitFailure
	}

	if !env.Success {
		color.Red("✗ %s", env.Error)
		return exitFailure
	}

	label := "items"
	if env.Symbol != "" {
		label = fmt.Sprintf("%s points at %s", env.Symbol, env.Interval)
	}
	color.Green("✓ %d %s", len(env.Data), label)
	return exitOK
}
