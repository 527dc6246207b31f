// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/intentd/internal/builtin"
	"github.com/holomush/intentd/internal/discovery"
	"github.com/holomush/intentd/internal/registry"
	"github.com/holomush/intentd/internal/router"
	"github.com/holomush/intentd/pkg/intent"
)

const diceManifest = `id: dice
version: 1.0.0
runtime: binary
entryPoint: dice
enabled: true
capabilities: ["dice:*"]
config:
  sides: 20
`

// userPlugins is a user plugin root holding the compiled dice plugin.
var userPlugins string

var _ = BeforeSuite(func() {
	userPlugins = GinkgoT().TempDir()
	diceDir := filepath.Join(userPlugins, "dice")
	Expect(os.MkdirAll(diceDir, 0o750)).To(Succeed())

	build := exec.Command("go", "build", "-o", filepath.Join(diceDir, "dice"), "./testdata/dice")
	build.Stdout = GinkgoWriter
	build.Stderr = GinkgoWriter
	Expect(build.Run()).To(Succeed())

	Expect(os.WriteFile(filepath.Join(diceDir, "plugin.yaml"), []byte(diceManifest), 0o600)).To(Succeed())
})

// stack is a router wired the way intentd wires it.
type stack struct {
	discovery *discovery.Discovery
	registry  *registry.Registry
	router    *router.Router
}

func newStack(ctx context.Context, cfg discovery.Config) *stack {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := discovery.New(cfg,
		discovery.WithLogger(logger),
		discovery.WithBuiltins(builtin.Factories()),
	)
	reg := registry.New(registry.WithLogger(logger))
	rtr := router.New(d, reg, router.WithLogger(logger))

	_, err := reg.Register(ctx, builtin.NewSystem(rtr))
	Expect(err).NotTo(HaveOccurred())
	Expect(rtr.Initialize(ctx)).To(Succeed())

	return &stack{discovery: d, registry: reg, router: rtr}
}

func baseConfig() discovery.Config {
	cfg := discovery.DefaultConfig()
	cfg.SystemDirectory = filepath.Join("..", "..", "plugins")
	cfg.UserDirectory = userPlugins
	return cfg
}

var _ = Describe("Plugin discovery and routing", func() {
	var (
		ctx context.Context
		s   *stack
	)

	run := func(action string, data any) intent.Result {
		return s.router.ExecuteIntent(ctx, intent.Intent{Action: action, Data: data}, intent.ExecContext{Source: "integration"})
	}

	AfterEach(func() {
		if s != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			Expect(s.router.Shutdown(shutdownCtx)).To(Succeed())
			s = nil
		}
	})

	Context("with the default configuration", func() {
		BeforeEach(func() {
			ctx = context.Background()
			s = newStack(ctx, baseConfig())
		})

		It("loads every system and user plugin", func() {
			Expect(s.router.Ready()).To(BeTrue())
			Expect(s.router.GetPlugins()).To(HaveKey("echo"))
			Expect(s.router.GetPlugins()).To(HaveKey("look"))
			Expect(s.router.GetPlugins()).To(HaveKey("fancy-look"))
			Expect(s.router.GetPlugins()).To(HaveKey("greeter"))
			Expect(s.router.GetPlugins()).To(HaveKey("dice"))
			Expect(s.router.GetPlugins()).To(HaveKey("system"))
		})

		It("routes a contested intent to the highest priority", func() {
			found, ok := s.router.FindPluginForIntent(intent.Intent{Action: "core:look"})
			Expect(ok).To(BeTrue())
			Expect(found.ID).To(Equal("fancy-look"))

			res := run("core:look", nil)
			Expect(res.Success).To(BeTrue())
			Expect(res.Data).To(HaveKeyWithValue("text", "You stand in a sunlit room."))
		})

		It("routes an uncontested intent to its sole declarer", func() {
			res := run("core:glance", nil)
			Expect(res.Success).To(BeTrue())
			Expect(res.Data).To(HaveKeyWithValue("text", "You glance around a quiet room."))
		})

		It("reports substitution", func() {
			Expect(s.router.IsPluginSubstituted("look")).To(BeTrue())
			by, _, ok := s.router.GetSubstitutingPlugin("look")
			Expect(ok).To(BeTrue())
			Expect(by).To(Equal("fancy-look"))
		})

		It("runs builtin plugins", func() {
			res := run("echo:say", "hello")
			Expect(res).To(Equal(intent.Succeeded("hello")))
		})

		It("lets Lua plugins dispatch to legacy handlers", func() {
			res := run("greet:hello", map[string]any{"name": "Ada"})
			Expect(res.Success).To(BeTrue(), res.Error)
			Expect(res.Data).To(HaveKeyWithValue("greeting", "Hello, Ada!"))
			Expect(res.Data).To(HaveKeyWithValue("pong", true))
		})

		It("runs binary plugins out of process", func() {
			res := run("dice:roll", nil)
			Expect(res.Success).To(BeTrue(), res.Error)

			data, ok := res.Data.(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(data).To(HaveKeyWithValue("sides", BeNumerically("==", 20)))
			Expect(data["roll"]).To(And(BeNumerically(">=", 1), BeNumerically("<=", 20)))
			Expect(data["request_id"]).NotTo(BeEmpty())
		})

		It("returns binary plugin errors as failed results", func() {
			res := run("dice:fail", nil)
			Expect(res.Success).To(BeFalse())
			Expect(res.Error).To(ContainSubstring("the dice fell off the table"))
		})

		It("falls back to the legacy registry", func() {
			found, ok := s.router.FindPluginForIntent(intent.Intent{Action: builtin.ActionPing})
			Expect(ok).To(BeTrue())
			Expect(found.Source).To(Equal(router.SourceLegacy))
		})

		It("fails unknown intents with a user-facing message", func() {
			res := run("nope:nothing", nil)
			Expect(res).To(Equal(intent.Failed("No plugin found for intent: nope:nothing")))
		})
	})

	Context("with an operator override", func() {
		BeforeEach(func() {
			ctx = context.Background()
			cfg := baseConfig()
			cfg.IntentHandlers = map[string]string{"core:look": "look"}
			s = newStack(ctx, cfg)
		})

		It("routes to the configured plugin", func() {
			res := run("core:look", nil)
			Expect(res.Success).To(BeTrue())
			Expect(res.Data).To(HaveKeyWithValue("text", "You are in a quiet room."))
		})
	})

	Context("with user plugins disabled", func() {
		BeforeEach(func() {
			ctx = context.Background()
			cfg := baseConfig()
			cfg.LoadUserPlugins = false
			s = newStack(ctx, cfg)
		})

		It("does not load them", func() {
			_, ok := s.router.GetPlugin("dice")
			Expect(ok).To(BeFalse())
			Expect(run("dice:roll", nil).Success).To(BeFalse())
		})
	})

	Context("with discovery disabled", func() {
		BeforeEach(func() {
			ctx = context.Background()
			cfg := baseConfig()
			cfg.Enabled = false
			s = newStack(ctx, cfg)
		})

		It("only routes legacy handlers", func() {
			Expect(run("core:look", nil).Success).To(BeFalse())
			Expect(run(builtin.ActionPing, nil).Success).To(BeTrue())
		})
	})
})
