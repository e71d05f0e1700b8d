package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Database    Database
	Auth        Auth
	Access      Access

	MercadoPago MercadoPago `envPrefix:"MP_"`
	Redis       Redis       `envPrefix:"REDIS_"`
	Kafka       Kafka       `envPrefix:"KAFKA_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

func (e Environment) IsProduction() bool {
	return e.Name == "production"
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host           string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
}

type Database struct {
	Driver       string        `env:"DB_DRIVER" envDefault:"mysql"` // mysql, postgres or sqlite
	URL          string        `env:"DATABASE_URL"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`
	Timeout      time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"JWT_ISSUER" envDefault:"content-storefront"`
}

type Access struct {
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`
	VisitLogTimeout time.Duration `env:"VISIT_LOG_TIMEOUT" envDefault:"5s"`
}

type MercadoPago struct {
	BaseApiURL      string        `env:"BASE_API_URL" envDefault:"https://api.mercadopago.com"`
	AccessToken     string        `env:"ACCESS_TOKEN"`
	NotificationURL string        `env:"NOTIFICATION_URL"`
	PayerEmail      string        `env:"DEFAULT_PAYER_EMAIL" envDefault:"buyer@storefront.local"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type Redis struct {
	URL          string        `env:"URL"`
	RedeemMax    int           `env:"REDEEM_MAX" envDefault:"20"`
	RedeemWindow time.Duration `env:"REDEEM_WINDOW" envDefault:"10m"`
}

type Kafka struct {
	Brokers           []string `env:"BROKERS" envSeparator:","`
	PurchasePaidTopic string   `env:"PURCHASE_PAID_TOPIC" envDefault:"storefront.purchase.paid"`
}
