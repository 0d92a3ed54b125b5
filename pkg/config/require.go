package config

import "log"

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustPositive(value int, envName string) {
	if value <= 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// MustValid checks the values every deployment needs before serving traffic.
func (c Config) MustValid() {
	MustNonEmpty(c.DatabaseURL, "DATABASE_URL")
	MustNonEmptyBytes(c.SessionSecret, "SESSION_SECRET")
	MustPositive(c.P24.MerchantID, "P24_MERCHANT_ID")
	MustPositive(c.P24.PosID, "P24_POS_ID")
	MustNonEmpty(c.P24.CRC, "P24_CRC")
	MustNonEmpty(c.P24.APIKey, "P24_API_KEY")
}
