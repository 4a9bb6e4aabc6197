// demo_seed fills a database with demo badges, key fobs and a few weeks of
// check-outs, then prints the last day as CSV. Handy for trying the TUI and
// the export without a reader.
//
//	go run ./tools/demo_seed --dsn ./data/demo.db --key ./data/demo.key
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/toeirei/keyfob/internal/crypto"
	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/model"
	"github.com/toeirei/keyfob/internal/service"
)

type options struct {
	dbType string
	dsn    string
	key    string
	days   int
	seed   uint64
	now    time.Time
}

var (
	demoEmployees = []string{"Alice Adler", "Bruno Becker", "Chiara Conti"}
	demoKeys      = []string{"Van 1", "Van 2", "Workshop", "Server room"}
)

func main() {
	opts := options{now: time.Now()}
	pflag.StringVar(&opts.dbType, "type", "sqlite", "database type (sqlite, postgres, mysql)")
	pflag.StringVar(&opts.dsn, "dsn", "file:demo?mode=memory&cache=shared", "database DSN")
	pflag.StringVar(&opts.key, "key", "demo.key", "secret key file, created if missing")
	pflag.IntVar(&opts.days, "days", 21, "number of days to fill")
	pflag.Uint64Var(&opts.seed, "seed", 1, "random seed")
	pflag.Parse()

	if err := run(context.Background(), os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "demo_seed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, opts options) error {
	store, err := db.NewStoreFromDSN(opts.dbType, opts.dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	cipher, err := crypto.Load(opts.key)
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}

	employees, err := seedTags(ctx, store, cipher, model.KindEmployee, 0xE000, demoEmployees)
	if err != nil {
		return err
	}
	keys, err := seedTags(ctx, store, cipher, model.KindKey, 0xF000, demoKeys)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tags: %d employees, %d keys\n", len(employees), len(keys))

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))
	today := time.Date(opts.now.Year(), opts.now.Month(), opts.now.Day(), 0, 0, 0, 0, opts.now.Location())
	events := 0
	for d := opts.days - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)
		for _, key := range keys {
			if rng.IntN(3) == 0 {
				continue
			}
			emp := employees[rng.IntN(len(employees))]
			at := day.Add(7*time.Hour + time.Duration(rng.IntN(180))*time.Minute)
			if !at.Before(opts.now) {
				continue
			}
			if open, err := store.OpenCheckout(ctx, key); err != nil {
				return err
			} else if open != nil {
				continue
			}
			if _, err := store.CheckOut(ctx, key, emp, at); err != nil {
				return fmt.Errorf("check out %X: %w", key, err)
			}
			events++
			// The last day keeps some keys out.
			if d == 0 && rng.IntN(2) == 0 {
				continue
			}
			in := at.Add(time.Duration(30+rng.IntN(300)) * time.Minute)
			if !in.Before(opts.now) {
				continue
			}
			if _, err := store.CheckIn(ctx, key, in); err != nil {
				return fmt.Errorf("check in %X: %w", key, err)
			}
			events++
		}
	}
	open, err := store.OpenCheckouts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "events: %d, open check-outs: %d\n", events, len(open))

	exp := &service.Exporter{Store: store, Cipher: cipher}
	rows, err := exp.WriteCSV(ctx, out, today, today.Add(24*time.Hour-time.Nanosecond), service.ExportOptions{Location: opts.now.Location()})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(out, "exported rows for today: %d\n", rows)
	return nil
}

func seedTags(ctx context.Context, store db.Store, c *crypto.Cipher, kind model.TagKind, base uint64, labels []string) ([]uint64, error) {
	uids := make([]uint64, 0, len(labels))
	for i, label := range labels {
		uid := base + uint64(i) + 1
		existing, err := store.GetTag(ctx, uid)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			uids = append(uids, uid)
			continue
		}
		blob, err := c.EncryptName(label)
		if err != nil {
			return nil, err
		}
		id := strings.ReplaceAll(uuid.NewString(), "-", "")
		tag := model.Tag{UID: uid, ContentUUID: id, Kind: kind, Active: true}
		if err := store.RegisterTag(ctx, tag, model.TagContent{UUID: id, Encrypted: blob}); err != nil {
			return nil, fmt.Errorf("register %s: %w", label, err)
		}
		uids = append(uids, uid)
	}
	return uids, nil
}
