package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	coconutrisk "coconut-risk/agents/coconut-risk"
	"coconut-risk/shared/config"
	"coconut-risk/shared/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent := coconutrisk.NewCoconutRiskAgent(cfg)
	s := scheduler.New(cfg, agent)

	mode := ""
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "--once":
		fmt.Println("Running once...")
		if err := agent.Initialize(); err != nil {
			log.Fatalf("Failed to initialize agent: %v", err)
		}
		if err := s.RunOnce(ctx); err != nil {
			log.Fatalf("Failed to run: %v", err)
		}
		fmt.Print(coconutrisk.RenderText(agent.Current()))
		return

	case "--interactive":
		if err := agent.Initialize(); err != nil {
			log.Fatalf("Failed to initialize agent: %v", err)
		}

		var console *coconutrisk.Console
		facts := coconutrisk.NewFactRotator(cfg.Facts.List, cfg.Facts.Interval, func(fact string) {
			console.Printf("🥥 %s\n", fact)
		})
		console = coconutrisk.NewConsole(agent, facts, os.Stdin, os.Stdout)

		if err := facts.Start(); err != nil {
			log.Fatalf("Failed to start fact rotation: %v", err)
		}
		defer facts.Stop()

		if err := s.RunOnce(ctx); err != nil {
			log.Printf("Initial run failed: %v", err)
		}
		console.Printf("%s", coconutrisk.RenderText(agent.Current()))

		if err := console.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("Console failed: %v", err)
		}
		return
	}

	fmt.Println("Starting scheduler...")
	if err := s.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}
