package config

import "github.com/spf13/viper"

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.listenAddr", ":12345")
	v.SetDefault("server.metricsAddr", ":9600")
	v.SetDefault("server.idleTimeout", 600)

	// Database
	v.SetDefault("db.path", "gobbs.db")

	// Data directories
	v.SetDefault("data.docsDir", "data/docs")
	v.SetDefault("data.uploadsDir", "data/uploads")

	// Chat
	v.SetDefault("chat.historySize", 200)

	// Logging
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
