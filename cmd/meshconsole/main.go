package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("no se pudo leer .env: %v", err)
	}

	var opts globalOpts
	root := &cobra.Command{
		Use:           "meshconsole",
		Short:         "Consola de la malla: login, salud agregada y servidor de estado",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", envOr("MESHCONSOLE_CONFIG", ""), "Archivo YAML de configuración (env MESHCONSOLE_CONFIG)")
	root.PersistentFlags().StringVar(&opts.token, "token", envOr("MESHCONSOLE_TOKEN", ""), "Token para la estrategia token (env MESHCONSOLE_TOKEN)")

	root.AddCommand(newLoginCmd(&opts))
	root.AddCommand(newHealthCmd(&opts))
	root.AddCommand(newServeCmd(&opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Muestra la versión",
		Run:   func(*cobra.Command, []string) { fmt.Println(version) },
	})

	err := root.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type globalOpts struct {
	configPath string
	token      string
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
