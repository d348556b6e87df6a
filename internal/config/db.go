package config

// DB holds the database configuration settings for the gateway-local
// tables (mobile devices, login audit).
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string // "mysql" or "sqlite"
	SQLitePath string // used when GormEngine is "sqlite"
}
