// Command oneshot-emulate runs the issuance scenarios against a local
// ledger emulator.
//
// Usage: go run ./cmd/oneshot-emulate/ [-demo lock|gift|nft|all] [-conf file]
//
// It funds two accounts derived from the testnet mnemonic, then for each
// demo mints, advances the ledger and redeems, checking balances and asset
// supply after every step. The ledger lives in memory unless the config
// selects badger storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/internal/ledger"
	klog "github.com/Klingon-tech/oneshot/internal/log"
	"github.com/Klingon-tech/oneshot/internal/protocol"
	"github.com/Klingon-tech/oneshot/internal/storage"
	"github.com/Klingon-tech/oneshot/internal/validators"
	"github.com/Klingon-tech/oneshot/internal/wallet"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

const fundPerAccount = 100 * config.ADA

func main() {
	demo := flag.String("demo", "all", "scenario to run: lock, gift, nft or all")
	confPath := flag.String("conf", "", "config file (key = value)")
	flag.Parse()

	cfg, err := loadConfig(*confPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := klog.InitFromConfig(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("emulate")

	db, closeDB, err := openDB(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open ledger database")
	}
	defer closeDB()

	env, err := newEnv(cfg, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("boot emulator")
	}

	demos, err := selectDemos(*demo)
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	for _, d := range demos {
		logger.Info().Str("demo", d.name).Msg("running")
		if err := d.run(context.Background(), env, logger); err != nil {
			logger.Fatal().Err(err).Str("demo", d.name).Msg("demo failed")
		}
	}
	logger.Info().Uint64("height", env.em.Height()).Msg("all demos passed")
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default(config.Testnet)
	if path != "" {
		values, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := config.ApplyFileConfig(cfg, values); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyNetwork()
	return cfg, nil
}

func openDB(cfg *config.Config) (storage.DB, func(), error) {
	if cfg.Storage != config.StorageBadger {
		return storage.NewMemory(), func() {}, nil
	}
	db, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

// env is one emulator with two funded accounts.
type env struct {
	em    *ledger.Emulator
	tmpl  protocol.Templates
	nft   plutus.Template
	alice *wallet.Account
	bob   *wallet.Account
}

func newEnv(cfg *config.Config, db storage.DB) (*env, error) {
	accounts, err := wallet.AccountsFromMnemonic(config.TestnetMnemonic, "", 2)
	if err != nil {
		return nil, err
	}
	reg, err := validators.Registry()
	if err != nil {
		return nil, err
	}
	em, err := ledger.NewEmulator(cfg, db, []ledger.GenesisAccount{
		{Address: accounts[0].Address, Value: types.Coin(fundPerAccount)},
		{Address: accounts[1].Address, Value: types.Coin(fundPerAccount)},
	}, reg)
	if err != nil {
		return nil, err
	}
	tmpl, err := protocol.DefaultTemplates()
	if err != nil {
		return nil, err
	}
	nft, err := validators.NFTPolicy()
	if err != nil {
		return nil, err
	}
	return &env{em: em, tmpl: tmpl, nft: nft, alice: accounts[0], bob: accounts[1]}, nil
}

type demo struct {
	name string
	run  func(ctx context.Context, e *env, logger zerolog.Logger) error
}

var allDemos = []demo{
	{"lock", runLock},
	{"gift", runGift},
	{"nft", runNFT},
}

func selectDemos(name string) ([]demo, error) {
	if name == "all" {
		return allDemos, nil
	}
	for _, d := range allDemos {
		if d.name == name {
			return []demo{d}, nil
		}
	}
	return nil, fmt.Errorf("unknown demo %q", name)
}
