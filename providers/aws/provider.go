package aws

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/types"
)

// Provider hands out scanners for one region over a shared client
// bundle.
type Provider struct {
	clients *Clients
	logger  zerolog.Logger
}

// NewProvider loads AWS credentials for the region and builds the
// service clients.
func NewProvider(ctx context.Context, region string, logger zerolog.Logger) (*Provider, error) {
	clients, err := NewClients(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("aws clients for %s: %w", region, err)
	}
	return &Provider{clients: clients, logger: logger}, nil
}

// NewProviderWithClients wires a prebuilt client bundle, used by tests.
func NewProviderWithClients(clients *Clients, logger zerolog.Logger) *Provider {
	return &Provider{clients: clients, logger: logger}
}

// Region reports the region this provider is bound to.
func (p *Provider) Region() string { return p.clients.Region }

// Scanner returns the scanner for a resource type.
func (p *Provider) Scanner(rt types.ResourceType) (scanner.Scanner, error) {
	region := p.clients.Region
	switch rt {
	case types.ResourceEC2:
		return NewEC2Scanner(p.clients.EC2, region, p.logger), nil
	case types.ResourceEBS:
		return NewEBSScanner(p.clients.EC2, region, p.logger), nil
	case types.ResourceLambda:
		return NewLambdaScanner(p.clients.Lambda, region, p.logger), nil
	case types.ResourceS3:
		return NewS3Scanner(p.clients.S3, region, p.logger), nil
	case types.ResourceRDS:
		return NewRDSScanner(p.clients.RDS, region, p.logger), nil
	}
	return nil, fmt.Errorf("no scanner for resource type %q", rt)
}

// ScannerFactory adapts provider construction to the multi-region
// fan-out. Each region gets its own client bundle.
func ScannerFactory(logger zerolog.Logger) scanner.Factory {
	return func(ctx context.Context, region string, rt types.ResourceType) (scanner.Scanner, error) {
		p, err := NewProvider(ctx, region, logger)
		if err != nil {
			return nil, err
		}
		return p.Scanner(rt)
	}
}
