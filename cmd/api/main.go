package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// @title           Invoice API
// @version         1.0
// @description     Invoice management with Stripe payment links, SendGrid email and Twilio SMS notifications.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
