package main

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	MongoURI  string
	MongoDB   string
	JWTSecret string
	Port      string

	// Fabric gateway settings. LedgerEnabled=false runs cache-only: records
	// stay pending and retry once a network is configured.
	LedgerEnabled     bool
	LedgerEndpoint    string
	LedgerGatewayPeer string
	LedgerTLSCert     string
	LedgerMSPID       string
	LedgerChannel     string
	LedgerChaincode   string
	LedgerIdentityDir string
	LedgerTimeout     time.Duration
}

func mustConfig() Config {
	cfg := Config{
		MongoURI:  getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getenv("MONGO_DB", "herbtrace"),
		JWTSecret: getenv("JWT_SECRET", "change_me"),
		Port:      getenv("PORT", "8080"),

		LedgerEnabled:     getbool("LEDGER_ENABLED", false),
		LedgerEndpoint:    getenv("LEDGER_PEER_ENDPOINT", "localhost:7051"),
		LedgerGatewayPeer: getenv("LEDGER_GATEWAY_PEER", "peer0.org1.example.com"),
		LedgerTLSCert:     getenv("LEDGER_TLS_CERT", ""),
		LedgerMSPID:       getenv("LEDGER_MSP_ID", "Org1MSP"),
		LedgerChannel:     getenv("LEDGER_CHANNEL", "herbtrace-channel"),
		LedgerChaincode:   getenv("LEDGER_CHAINCODE", "herbtrace"),
		LedgerIdentityDir: getenv("LEDGER_IDENTITY_DIR", "wallet"),
		LedgerTimeout:     getduration("LEDGER_TIMEOUT", 30*time.Second),
	}

	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
