package config

// EnvPrefix is passed to envconfig; variable names are spelled out in struct
// tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "SHOPSYNC_DB_DSN"
	EnvDBHost = "SHOPSYNC_DB_HOST"
	EnvDBUser = "SHOPSYNC_DB_USER"
	EnvDBName = "SHOPSYNC_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
