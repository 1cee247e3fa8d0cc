// Command ternbot is the example host application for the framework: it
// loads a YAML config, wires the core subsystems together, registers the
// built-in handler plus a small demonstration unit, and runs until
// SIGINT/SIGTERM.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"os"
	"os/signal"
	"syscall"

	denet "github.com/hlandau/goutils/net"
	"github.com/hlandau/xlog"
	"github.com/ternbot/tern/broker"
	"github.com/ternbot/tern/builtin"
	"github.com/ternbot/tern/channel"
	"github.com/ternbot/tern/config"
	"github.com/ternbot/tern/conn"
	"github.com/ternbot/tern/match"
	"github.com/ternbot/tern/outbound"
	"github.com/ternbot/tern/registry"
	"github.com/ternbot/tern/transport"
	"github.com/ternbot/tern/wire"
)

var log, Log = xlog.New("ternbot")

func main() {
	configPath := flag.String("c", "./config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	log.Fatale(err, "failed to load configuration")

	mgr := conn.New(conn.Config{
		Address: transport.Describe(cfg.Server, cfg.Port),
		Transport: transport.Config{
			UseTLS: cfg.UseSSL,
			Family: ipFamily(cfg.ServerIPType),
			TLSConfig: &tls.Config{
				ServerName: cfg.Server,
			},
		},
		Nick:              cfg.BotName,
		User:              cfg.BotName,
		RealName:          cfg.BotName,
		Password:          cfg.Password,
		Backoff:           denet.Backoff{},
		ReconnectInterval: cfg.ReconnectInterval(),
		Timeout:           cfg.ServerTimeout(),
	})

	sender := outbound.NewLimiter(mgr, 2, 5)

	sup := channel.NewSupervisor()
	br := broker.New()
	reg := registry.New()

	if _, err := reg.Register(builtin.UnitName, builtin.NewUnit(builtin.Deps{
		Channels:        sup,
		Broker:          br,
		Sender:          sender,
		BotNick:         cfg.BotName,
		NickSuffix:      cfg.NickAlternateSuffix,
		StartupChannels: cfg.Channels,
	})); err != nil {
		log.Fatale(err, "failed to register builtin unit")
	}

	if _, err := reg.Register("demo", demoUnit(cfg.HelpCmd)); err != nil {
		log.Fatale(err, "failed to register demo unit")
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof("received signal %v, shutting down", sig)
		mgr.Close()
		cancel()
	}()

	go pump(ctx, mgr, reg, sender)

	if err := mgr.Run(ctx); err != nil {
		log.Errore(err, "connection manager stopped")
	}
}

// pump delivers every inbound message from the Connection Manager to the
// Module Registry's broadcast set, building each message's ReplyContext.
func pump(ctx context.Context, mgr *conn.Manager, reg *registry.Registry, sender match.Sender) {
	for msg := range mgr.Messages() {
		rc := match.NewReplyContext(msg, mgr.Nick(), sender)
		reg.Broadcast(ctx, msg, rc)
	}
}

// demoUnit is a minimal example handler unit demonstrating the builder API;
// a real deployment registers its own units here instead.
func demoUnit(helpCmd string) *match.Unit {
	u := match.NewUnit("demo", helpCmd)
	u.On("PRIVMSG").Match("!ping", func(_ context.Context, _ *wire.Message, _ match.Captures, rc *match.ReplyContext) {
		rc.Reply("pong")
	}, match.Describe("replies with pong"))
	return u
}

func ipFamily(f config.IPFamily) transport.IPFamily {
	switch f {
	case config.IPv6:
		return transport.IPv6
	case config.IPv4:
		return transport.IPv4
	default:
		return transport.IPAny
	}
}
