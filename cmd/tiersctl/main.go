package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"tierforge/config"
	"tierforge/native/tiers"
	"tierforge/storage"
)

const defaultConfig = "./config.toml"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "tiers":
		runTiers(os.Args[2:])
	case "credit":
		runCredit(os.Args[2:])
	case "reserves":
		runReserves(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: tiersctl <tiers|credit|reserves> [flags]")
	fmt.Fprintln(os.Stderr, "  tiers    -config <path> [-category N] [-removed]   list stored tiers")
	fmt.Fprintln(os.Stderr, "  credit   -config <path> -address <0x...>           show a credit balance")
	fmt.Fprintln(os.Stderr, "  reserves -config <path> -tier <id>                 show reserved entitlement")
}

func openEngine(configPath string) (*tiers.Engine, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "tiers"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	engine := tiers.NewEngine(cfg.ProjectID, cfg.OwnerAddress())
	engine.SetState(tiers.NewStore(db))
	engine.SetReservedBeneficiary(cfg.ReservedBeneficiaryAddress())
	engine.SetFlags(tiers.Flags{
		LockReservedRateChanges: cfg.Flags.LockReservedRateChanges,
		LockVotingUnitChanges:   cfg.Flags.LockVotingUnitChanges,
		LockManualMintChanges:   cfg.Flags.LockManualMintChanges,
		PreventOverspending:     cfg.Flags.PreventOverspending,
	})
	return engine, db.Close, nil
}

func runTiers(args []string) {
	fs := flag.NewFlagSet("tiers", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the engine config file")
	category := fs.Uint("category", 0, "Restrict the listing to a category tag")
	removed := fs.Bool("removed", false, "Include removed tiers")
	fs.Parse(args)

	engine, closeFn, err := openEngine(*configPath)
	if err != nil {
		fatal(err)
	}
	defer closeFn()

	list, err := engine.Tiers(uint32(*category), *removed)
	if err != nil {
		fatal(err)
	}
	for _, tier := range list {
		status := "active"
		if tier.Removed {
			status = "removed"
		}
		fmt.Printf("tier %5d  floor=%s  remaining=%d/%d  minted=%d  reserved=%d/%d  category=%d  %s\n",
			tier.ID, tier.PriceFloor, tier.RemainingQuantity, tier.InitialQuantity,
			tier.Minted, tier.ReservedMinted, tier.ReservedRate, tier.Category, status)
	}
}

func runCredit(args []string) {
	fs := flag.NewFlagSet("credit", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the engine config file")
	address := fs.String("address", "", "Beneficiary address (0x-prefixed hex)")
	fs.Parse(args)

	addr, err := config.ParseAddress(*address)
	if err != nil {
		fatal(err)
	}
	engine, closeFn, err := openEngine(*configPath)
	if err != nil {
		fatal(err)
	}
	defer closeFn()

	credit, err := engine.CreditOf(addr)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("credit %s = %s\n", *address, credit)
}

func runReserves(args []string) {
	fs := flag.NewFlagSet("reserves", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the engine config file")
	tierID := fs.Uint("tier", 0, "Tier ID")
	fs.Parse(args)

	engine, closeFn, err := openEngine(*configPath)
	if err != nil {
		fatal(err)
	}
	defer closeFn()

	outstanding, err := engine.ReservedOutstanding(uint16(*tierID))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("tier %d reserved outstanding = %d\n", *tierID, outstanding)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
