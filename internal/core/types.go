package core

// UserID identifies an authenticated user. Identity is validated upstream,
// the coordinator only routes by it.
type UserID string

// ChannelID identifies a voice channel.
type ChannelID string

type Environment string

const (
	DevelopmentEnv Environment = "development"
	ProductionEnv  Environment = "production"
)

func (e Environment) IsProduction() bool {
	return e == ProductionEnv
}

func (e Environment) IsDevelopment() bool {
	return e == DevelopmentEnv
}
