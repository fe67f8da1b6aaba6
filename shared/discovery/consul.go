package discovery

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registration describes how this instance is announced to Consul.
type Registration struct {
	ID             string
	Name           string
	Host           string
	HTTPPort       int
	GRPCHealthAddr string
	Tags           []string
}

// ConsulRegistrar registers and deregisters a service instance with the local Consul agent.
type ConsulRegistrar struct {
	client *api.Client
	logger *zerolog.Logger
}

// NewConsulRegistrar creates a registrar talking to the agent at addr.
func NewConsulRegistrar(addr string, logger *zerolog.Logger) (*ConsulRegistrar, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &ConsulRegistrar{client: client, logger: logger}, nil
}

// Register announces reg with a gRPC health check against its health server.
func (c *ConsulRegistrar) Register(reg Registration) error {
	check := &api.AgentServiceCheck{
		GRPC:                           healthTarget(reg),
		Interval:                       "10s",
		Timeout:                        "3s",
		DeregisterCriticalServiceAfter: "1m",
	}

	if err := c.client.Agent().ServiceRegister(&api.AgentServiceRegistration{
		ID:      reg.ID,
		Name:    reg.Name,
		Address: reg.Host,
		Port:    reg.HTTPPort,
		Tags:    reg.Tags,
		Check:   check,
	}); err != nil {
		return fmt.Errorf("register service %s: %w", reg.ID, err)
	}

	c.logger.Info().Str("id", reg.ID).Str("name", reg.Name).Msg("registered with consul")
	return nil
}

// Deregister removes the instance from the catalog.
func (c *ConsulRegistrar) Deregister(id string) error {
	if err := c.client.Agent().ServiceDeregister(id); err != nil {
		return fmt.Errorf("deregister service %s: %w", id, err)
	}

	c.logger.Info().Str("id", id).Msg("deregistered from consul")
	return nil
}

// healthTarget points the check at the advertised host when the health server listens on all interfaces.
func healthTarget(reg Registration) string {
	host, port, err := net.SplitHostPort(reg.GRPCHealthAddr)
	if err != nil {
		return reg.GRPCHealthAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = reg.Host
	}
	if _, err := strconv.Atoi(port); err != nil {
		return reg.GRPCHealthAddr
	}

	return net.JoinHostPort(host, port)
}
