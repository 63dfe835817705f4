package config

import (
	"fmt"
	"log/slog"

	"github.com/jpalmerr/metadeploy"
)

// BuildConnection creates the SOAP connection described by cfg.
func BuildConnection(cfg *Config) (*metadeploy.SOAPConnection, error) {
	conn, err := metadeploy.NewSOAPConnection(metadeploy.SOAPConfig{
		InstanceURL: cfg.InstanceURL,
		APIVersion:  cfg.APIVersion,
		SessionID:   cfg.SessionID,
		Timeout:     cfg.Timeout.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}
	return conn, nil
}

// BuildOptions converts cfg into deployer options. extra options are
// appended after the configured ones.
func BuildOptions(cfg *Config, logger *slog.Logger, extra ...metadeploy.Option) []metadeploy.Option {
	opts := []metadeploy.Option{
		metadeploy.WithInitialWait(cfg.Poll.InitialWait.Duration()),
		metadeploy.WithMaxPolls(cfg.Poll.MaxPolls),
		metadeploy.WithDeployOptions(cfg.DeployOptions()),
	}
	if logger != nil {
		opts = append(opts, metadeploy.WithLogger(logger))
	}
	return append(opts, extra...)
}

// BuildDeployer creates a connection and a deployer from cfg.
//
// The caller owns the returned connection and should Close it when done.
func BuildDeployer(cfg *Config, logger *slog.Logger, extra ...metadeploy.Option) (*metadeploy.Deployer, *metadeploy.SOAPConnection, error) {
	conn, err := BuildConnection(cfg)
	if err != nil {
		return nil, nil, err
	}

	d, err := metadeploy.New(conn, BuildOptions(cfg, logger, extra...)...)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create deployer: %w", err)
	}
	return d, conn, nil
}
