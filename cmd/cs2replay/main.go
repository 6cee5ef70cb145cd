/*

Package main is a simple CLI app to parse and display information about
a Counter-Strike 2 demo file passed as a CLI argument.

*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/icza/cs2replay/query"
)

const (
	appName    = "cs2replay"
	appVersion = "v0.1.0"
	appHome    = "https://github.com/icza/cs2replay"
)

var (
	version = flag.Bool("version", false, "print version info and exit")

	header      = flag.Bool("header", true, "print the fixed demo header block")
	convars     = flag.Bool("convars", false, "print console variable assignments")
	chat        = flag.Bool("chat", false, "print chat messages")
	listEvents  = flag.Bool("list-events", false, "print every announced game event name")
	events      = flag.String("events", "", "comma-separated game event names to print")
	eventPlayer = flag.String("event-player", "", "comma-separated props resolved onto each event's userid/attacker/assister/victim roles")
	eventOther  = flag.String("event-other", "", "comma-separated world/round scalar props added to each event row")
	grenades    = flag.Bool("grenades", false, "print grenade trajectory samples")
	itemDrops   = flag.Bool("itemdrops", false, "print item pickup/purchase/remove events")
	skins       = flag.Bool("skins", false, "print final-tick weapon skin snapshot")
	playerInfo  = flag.Bool("playerinfo", false, "print final-tick player identity snapshot")
	ticks       = flag.String("ticks", "", "comma-separated tick numbers to sample")
	props       = flag.String("props", "", "comma-separated property names to sample at -ticks")
	propStates  = flag.String("prop-states", "", "comma-separated extra property names, sampled once per tick like -props at -ticks")
	players     = flag.String("players", "", "comma-separated steamids to restrict -ticks to")

	indent = flag.Bool("indent", true, "use indentation when formatting output")
)

func main() {
	flag.Parse()

	if *version {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("Failed to read demo file: %v\n", err)
		os.Exit(2)
	}

	q, err := query.Open(data)
	if err != nil {
		fmt.Printf("Failed to parse demo: %v\n", err)
		os.Exit(2)
	}

	out := map[string]any{}

	if *header {
		out["header"] = q.ParseHeader()
	}
	if *convars {
		if t, err := q.ParseConvars(); err != nil {
			fmt.Printf("Failed to parse convars: %v\n", err)
			os.Exit(2)
		} else {
			out["convars"] = t
		}
	}
	if *chat {
		if t, err := q.ParseChatMessages(); err != nil {
			fmt.Printf("Failed to parse chat messages: %v\n", err)
			os.Exit(2)
		} else {
			out["chat"] = t
		}
	}
	if *listEvents {
		names, err := q.ListGameEvents()
		if err != nil {
			fmt.Printf("Failed to list game events: %v\n", err)
			os.Exit(2)
		}
		out["events"] = names
	}
	if *events != "" {
		var player, other []string
		if *eventPlayer != "" {
			player = strings.Split(*eventPlayer, ",")
		}
		if *eventOther != "" {
			other = strings.Split(*eventOther, ",")
		}
		tabs, err := q.ParseEvents(strings.Split(*events, ","), player, other)
		if err != nil {
			fmt.Printf("Failed to parse events: %v\n", err)
			os.Exit(2)
		}
		out["event_tables"] = tabs
	}
	if *grenades {
		tabs, err := q.ParseGrenades()
		if err != nil {
			fmt.Printf("Failed to parse grenade events: %v\n", err)
			os.Exit(2)
		}
		out["grenades"] = tabs
	}
	if *itemDrops {
		tabs, err := q.ParseItemDrops()
		if err != nil {
			fmt.Printf("Failed to parse item drop events: %v\n", err)
			os.Exit(2)
		}
		out["item_drops"] = tabs
	}
	if *skins {
		t, err := q.ParseSkins()
		if err != nil {
			fmt.Printf("Failed to parse skins: %v\n", err)
			os.Exit(2)
		}
		out["skins"] = t
	}
	if *playerInfo {
		t, err := q.ParsePlayerInfo()
		if err != nil {
			fmt.Printf("Failed to parse player info: %v\n", err)
			os.Exit(2)
		}
		out["player_info"] = t
	}
	if *ticks != "" {
		tickNums, err := parseInt32List(*ticks)
		if err != nil {
			fmt.Printf("Invalid -ticks: %v\n", err)
			os.Exit(2)
		}
		var propNames, propStateNames, playerIDs []string
		if *props != "" {
			propNames = strings.Split(*props, ",")
		}
		if *propStates != "" {
			propStateNames = strings.Split(*propStates, ",")
		}
		if *players != "" {
			playerIDs = strings.Split(*players, ",")
		}
		t, err := q.ParseTicks(tickNums, propNames, playerIDs, propStateNames)
		if err != nil {
			fmt.Printf("Failed to parse ticks: %v\n", err)
			os.Exit(2)
		}
		out["ticks"] = t
	}

	enc := json.NewEncoder(os.Stdout)
	if *indent {
		enc.SetIndent("", "  ")
	}
	enc.Encode(out)
}

func parseInt32List(s string) ([]int32, error) {
	parts := strings.Split(s, ",")
	out := make([]int32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = int32(v)
	}
	return out, nil
}

func printVersion() {
	fmt.Println(appName, "version:", appVersion)
	fmt.Println("Platform:", runtime.GOOS, runtime.GOARCH)
	fmt.Println("Built with:", runtime.Version())
	fmt.Println("Home page:", appHome)
}

func printUsage() {
	fmt.Println("Usage:")
	name := os.Args[0]
	fmt.Printf("\t%s [FLAGS] demofile.dem\n", name)
	fmt.Println("\tRun with '-h' to see a list of available flags.")
}
