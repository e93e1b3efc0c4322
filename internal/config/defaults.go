package config

// DefaultRegions are the antibody regions matched when none are configured.
var DefaultRegions = []string{"CDR1", "CDR2", "CDR3"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/predab/data/db/predab.db"
	}
	if len(cfg.Matching.Regions) == 0 {
		cfg.Matching.Regions = append([]string(nil), DefaultRegions...)
	}
	if cfg.Distance.Workers == 0 {
		cfg.Distance.Workers = 4
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "text"
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "./results"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".csv", ".tsv", ".xlsx"}
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
}
