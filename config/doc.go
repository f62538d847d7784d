// Package config loads the settings of a resilient client process.
//
// Settings are layered: Default, then an optional YAML file whose ${VAR}
// references are expanded strictly, then GOCOMMON_* environment variables.
// A .env file, when present, is loaded into the environment first so it can
// feed both the YAML expansion and the overrides.
//
//	cfg, err := config.Load("callguard.yaml")
//	if err != nil {
//		return err
//	}
//	rlCfg, err := cfg.RateLimit.Options()
//	retryCfg, err := cfg.Retry.Options()
package config
