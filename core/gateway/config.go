package gateway

import "time"

// Config maps gateway connection settings to environment variables.
type Config struct {
	Token       string        `env:"BOT_TOKEN,required"`
	BotID       string        `env:"BOT_ID"`
	GatewayURL  string        `env:"GATEWAY_URL" envDefault:"wss://gateway.discord.gg/?v=10&encoding=json"`
	ShardCount  int           `env:"GATEWAY_SHARD_COUNT" envDefault:"1"`
	Intents     Intents       `env:"GATEWAY_INTENTS" envDefault:"0"`
	DialTimeout time.Duration `env:"GATEWAY_DIAL_TIMEOUT" envDefault:"30s"`
}
