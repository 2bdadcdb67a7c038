// Package config loads the ssehub configuration with Viper.
//
// Values come from config.yml, then a .env file (loaded with godotenv), then
// the process environment. Environment variables map onto nested keys by
// splitting on underscores, so SSE_KEEP_ALIVE=15s sets sse.keep_alive and
// SERVER_PORT=9090 sets server.port.
//
//	var cfg config.AppConfig
//	if err := config.LoadConfig("ssehub", &cfg, config.WithConfigFile(path)); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
