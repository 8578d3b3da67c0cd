// Command gateway runs a JSON-RPC gateway serving the channels configured in
// a YAML file.
//
// Environment:
//
//	RPCGATE_ADDR      listen address (default :8080)
//	RPCGATE_CHANNELS  channel configuration path (default channels.yaml)
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/rpcgate/rpcgate/channel"
	"github.com/rpcgate/rpcgate/gateway"
	"github.com/rpcgate/rpcgate/registry"
)

type MathMethods struct{}

func (m *MathMethods) Add(ctx context.Context, a, b int) (int, error) {
	return a + b, nil
}

func (m *MathMethods) Sub(ctx context.Context, args struct {
	A int `json:"a"`
	B int `json:"b"`
}) (int, error) {
	return args.A - args.B, nil
}

type EchoMethods struct{}

func (e *EchoMethods) Say(text string) string {
	return text
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := channel.Load(envOr("RPCGATE_CHANNELS", "channels.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load channel configuration")
	}

	reg := registry.New()
	reg.Register("math", &MathMethods{})
	reg.Register("echo", &EchoMethods{})

	mux, err := gateway.NewMux(cfg, reg, log,
		gateway.NewSecurityHeadersProcessor(),
		gateway.NewRequestLogProcessor(log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build gateway")
	}

	addr := envOr("RPCGATE_ADDR", ":8080")
	log.Info().Str("addr", addr).Int("channels", len(cfg.Channels)).Msg("starting gateway")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
