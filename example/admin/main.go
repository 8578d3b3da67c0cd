// Command admin manages the channel and security definitions stored in the
// gateway database.
//
// Usage:
//
//	admin -db gateway.db channel create -name orders -path /rpc/orders -whitelist orders.get,orders.create
//	admin -db gateway.db channel list
//	admin -db gateway.db channel delete -name orders
//	admin -db gateway.db security create -name orders-key -value s3cret
//
// Sealing keys are read from RPCGATE_KEY (hex, 32 bytes) and RPCGATE_KEY_ID.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/rpcgate/rpcgate/channel"
	"github.com/rpcgate/rpcgate/secret"
	"github.com/rpcgate/rpcgate/store"
)

func main() {
	_ = godotenv.Load()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	dbPath := flag.String("db", "gateway.db", "database path")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatal().Msg("usage: admin [-db path] <channel|security> <create|list|delete> [flags]")
	}

	s, err := store.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer s.Close()

	ctx := context.Background()

	switch args[0] + " " + args[1] {
	case "channel create":
		err = channelCreate(ctx, s, args[2:])
	case "channel list":
		err = channelList(ctx, s)
	case "channel delete":
		err = channelDelete(ctx, s, args[2:])
	case "security create":
		err = securityCreate(ctx, s, log, args[2:])
	case "security delete":
		err = securityDelete(ctx, s, args[2:])
	default:
		err = fmt.Errorf("unknown command %q %q", args[0], args[1])
	}
	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func channelCreate(ctx context.Context, s *store.Store, args []string) error {
	fs := flag.NewFlagSet("channel create", flag.ExitOnError)
	name := fs.String("name", "", "channel name")
	path := fs.String("path", "", "URL path")
	format := fs.String("format", channel.FormatJSON, "data format (json or cbor)")
	security := fs.String("security", "", "security definition name")
	whitelist := fs.String("whitelist", "", "comma-separated allowed methods")
	inactive := fs.Bool("inactive", false, "create the channel inactive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ch := channel.Channel{
		Name:       *name,
		URLPath:    *path,
		IsActive:   !*inactive,
		DataFormat: *format,
		Security:   *security,
	}
	if *whitelist != "" {
		ch.ServiceWhitelist = strings.Split(*whitelist, ",")
	}

	rec, err := s.CreateChannel(ctx, ch)
	if err != nil {
		return err
	}
	fmt.Printf("created channel %s (id %d)\n", rec.Name, rec.ID)
	return nil
}

func channelList(ctx context.Context, s *store.Store) error {
	result, err := s.SearchChannels(ctx, store.Query{})
	if err != nil {
		return err
	}
	for _, rec := range result.Items {
		state := "active"
		if !rec.IsActive {
			state = "inactive"
		}
		fmt.Printf("%-20s %-24s %-6s %-8s %s\n",
			rec.Name, rec.URLPath, rec.Format(), state, strings.Join(rec.ServiceWhitelist, ","))
	}
	fmt.Printf("%d channel(s)\n", result.Total)
	return nil
}

func channelDelete(ctx context.Context, s *store.Store, args []string) error {
	fs := flag.NewFlagSet("channel delete", flag.ExitOnError)
	name := fs.String("name", "", "channel name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return s.DeleteChannel(ctx, *name)
}

func securityCreate(ctx context.Context, s *store.Store, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("security create", flag.ExitOnError)
	name := fs.String("name", "", "security definition name")
	header := fs.String("header", store.DefaultSecurityHeader, "request header to check")
	value := fs.String("value", "", "API key value")
	if err := fs.Parse(args); err != nil {
		return err
	}

	codec, err := codecFromEnv()
	if err != nil {
		return err
	}

	sealed, err := codec.Seal(*name, *value)
	if err != nil {
		return err
	}

	def, err := s.CreateSecurityDef(ctx, store.SecurityDef{
		Name:         *name,
		Header:       *header,
		SealedSecret: sealed,
	})
	if err != nil {
		return err
	}
	log.Info().Str("name", def.Name).Str("header", def.Header).Msg("created security definition")
	return nil
}

func securityDelete(ctx context.Context, s *store.Store, args []string) error {
	fs := flag.NewFlagSet("security delete", flag.ExitOnError)
	name := fs.String("name", "", "security definition name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return s.DeleteSecurityDef(ctx, *name)
}

func codecFromEnv() (*secret.Codec, error) {
	keyID := os.Getenv("RPCGATE_KEY_ID")
	if keyID == "" {
		keyID = "default"
	}
	keyHex := os.Getenv("RPCGATE_KEY")
	if keyHex == "" {
		return nil, fmt.Errorf("RPCGATE_KEY is not set")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("RPCGATE_KEY is not valid hex: %w", err)
	}
	return secret.NewCodec(keyID, map[string][]byte{keyID: key})
}
