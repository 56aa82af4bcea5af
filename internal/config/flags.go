package config

import (
	"flag"
	"os"
	"time"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-t string   bot token
//	-a string   admin HTTP bind address (e.g., ":8080")
//	-w int      access window, hours
//	-z string   display timezone (IANA name)
//
// Only operational knobs get flags; webhook URLs and secrets stay in the
// environment.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("neuronbot", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BotToken, "t", config.BotToken, "bot token")
	fs.StringVar(&config.AdminAddr, "a", config.AdminAddr, "admin HTTP bind address")
	fs.StringVar(&config.DisplayTimezone, "z", config.DisplayTimezone, "display timezone")

	accessWindowHours := fs.Int("w", int(config.AccessWindow.Hours()), "access window (in hours)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		panic(err)
	}

	config.AccessWindow = time.Duration(*accessWindowHours) * time.Hour
}
