// fwhctl is a command-line client for a FranklinWH gateway: read stats,
// switch operating modes, and drive smart circuits, the grid connection and
// the generator module.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"

	"github.com/fwhmon/fwhmon/pkg/franklin"
	"github.com/fwhmon/fwhmon/pkg/types"
)

// opts are the parsed flag values an operation may consume.
type opts struct {
	mode   string
	soc    int
	sw     [3]string
	enable bool
	status string
}

type operation struct {
	desc string
	run  func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error)
}

// operations is the explicit registry of everything fwhctl can do.
var operations = map[string]operation{
	"stats": {
		desc: "print a full stats snapshot",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			return c.GetStats(ctx)
		},
	},
	"mode": {
		desc: "print the active operating mode",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			return c.GetMode(ctx)
		},
	},
	"modes": {
		desc: "list the modes the gateway offers",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			return c.GetModes(ctx)
		},
	},
	"set-mode": {
		desc: "switch operating mode (-mode, optional -soc)",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			mode, err := types.ParseWorkMode(o.mode)
			if err != nil {
				return nil, err
			}
			return nil, c.SetMode(ctx, mode, o.soc)
		},
	},
	"reserve": {
		desc: "set the backup reserve of the active mode (-soc)",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			if o.soc < 0 {
				return nil, fmt.Errorf("reserve needs -soc")
			}
			return nil, c.SetBackupReserve(ctx, o.soc)
		},
	},
	"switches": {
		desc: "print the smart-circuit relay state",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			state, err := c.GetSmartSwitchState(ctx)
			if err != nil {
				return nil, err
			}
			return state.String(), nil
		},
	},
	"set-switch": {
		desc: "set smart circuits (-sw1/-sw2/-sw3 on|off|keep)",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			var state types.SwitchState
			for i, v := range o.sw {
				ch, err := types.ParseSwitchChannel(v)
				if err != nil {
					return nil, err
				}
				state[i] = ch
			}
			return nil, c.SetSmartSwitchState(ctx, state)
		},
	},
	"grid": {
		desc: "go on or off grid (-status normal|off, optional -soc reserve)",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			var status types.GridStatus
			switch o.status {
			case "normal", "on":
				status = types.GridStatusNormal
			case "off":
				status = types.GridStatusOff
			default:
				return nil, fmt.Errorf("invalid -status %q, want normal or off", o.status)
			}
			soc := o.soc
			if soc < 0 {
				soc = 20
			}
			return nil, c.SetGridStatus(ctx, status, soc)
		},
	},
	"generator": {
		desc: "enable or disable the generator module (-enable)",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			return nil, c.SetGenerator(ctx, o.enable)
		},
	},
	"accessories": {
		desc: "list attached gateway modules",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			return c.Accessories(ctx)
		},
	},
	"login": {
		desc: "log in and print the account info",
		run: func(ctx context.Context, c *franklin.Client, f *franklin.TokenFetcher, o opts) (any, error) {
			if _, err := f.Token(ctx); err != nil {
				return nil, err
			}
			return f.AccountInfo(), nil
		},
	},
}

func usage() string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	s := "operations:\n"
	for _, name := range names {
		s += fmt.Sprintf("  %-12s %s\n", name, operations[name].desc)
	}
	return s
}

func main() {
	_ = godotenv.Load()

	op := lflag.String("op", "stats", "Operation to run, see -help for the list")
	baseURL := lflag.String("api-base-url", franklin.DefaultBaseURL, "FranklinWH cloud API base URL")
	mode := lflag.String("mode", "", "Operating mode: time_of_use, self_consumption or emergency_backup")
	socFlag := lflag.String("soc", "", "State-of-charge target percentage, empty for the mode default")
	sw1 := lflag.String("sw1", "keep", "Smart circuit 1: on, off or keep")
	sw2 := lflag.String("sw2", "keep", "Smart circuit 2: on, off or keep")
	sw3 := lflag.String("sw3", "keep", "Smart circuit 3: on, off or keep")
	enable := lflag.Bool("enable", false, "Enable the generator")
	status := lflag.String("status", "", "Grid status: normal or off")
	lflag.Configure()

	run, ok := operations[*op]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown operation %q\n%s", *op, usage())
		os.Exit(2)
	}

	soc := types.SOCDefault
	if *socFlag != "" {
		var err error
		if soc, err = strconv.Atoi(*socFlag); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -soc %q\n", *socFlag)
			os.Exit(2)
		}
	}

	username := os.Getenv("FWH_USERNAME")
	password := os.Getenv("FWH_PASSWORD")
	if username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "FWH_USERNAME and FWH_PASSWORD must be set")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fetcher := franklin.NewTokenFetcher(username, password, franklin.WithFetcherBaseURL(*baseURL))
	client := franklin.New(fetcher, os.Getenv("FWH_GATEWAY"), franklin.WithBaseURL(*baseURL))

	out, err := run.run(ctx, client, fetcher, opts{
		mode:   *mode,
		soc:    soc,
		sw:     [3]string{*sw1, *sw2, *sw3},
		enable: *enable,
		status: *status,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if out == nil {
		fmt.Println("ok")
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
