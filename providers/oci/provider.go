package oci

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/identity"
	"github.com/oracle/oci-go-sdk/v65/opsi"

	"github.com/yairfalse/varasto/providers"
	"github.com/yairfalse/varasto/types"
)

func init() {
	providers.Register("oci", NewDirectoryFactory)
}

// NewDirectoryFactory creates an OCI directory client from provider config
func NewDirectoryFactory(ctx context.Context, config providers.ClientConfig) (providers.DirectoryClient, error) {
	return NewDirectory(ctx, config.Profile, config.Region)
}

// Directory implements providers.DirectoryClient against OCI Identity
// (compartment tree) and Operations Insights (databases, hosts).
type Directory struct {
	identityClient identity.IdentityClient
	opsiClient     opsi.OperationsInsightsClient
	profile        string
	region         string
	tenancy        string
}

// NewDirectory creates an authenticated OCI directory client. Profile selects
// an entry in the standard OCI config file; empty means the default chain.
func NewDirectory(ctx context.Context, profile, region string) (*Directory, error) {
	cp := common.DefaultConfigProvider()
	if profile != "" {
		cp = common.CustomProfileConfigProvider("", profile)
	}

	tenancy, err := cp.TenancyOCID()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenancy: %w", err)
	}

	identityClient, err := identity.NewIdentityClientWithConfigurationProvider(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity client: %w", err)
	}

	opsiClient, err := opsi.NewOperationsInsightsClientWithConfigurationProvider(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to create opsi client: %w", err)
	}

	if region != "" {
		identityClient.SetRegion(region)
		opsiClient.SetRegion(region)
	}

	return &Directory{
		identityClient: identityClient,
		opsiClient:     opsiClient,
		profile:        profile,
		region:         region,
		tenancy:        tenancy,
	}, nil
}

// Source identifies which (profile, region) this client talks to.
func (d *Directory) Source() types.Source {
	return types.Source{Profile: d.profile, Region: d.region, Tenancy: d.tenancy}
}

// ListChildCompartments lists one page of direct children of a compartment.
func (d *Directory) ListChildCompartments(ctx context.Context, parentID, page string) (providers.CompartmentPage, error) {
	request := identity.ListCompartmentsRequest{
		CompartmentId: common.String(parentID),
	}
	if page != "" {
		request.Page = common.String(page)
	}

	response, err := d.identityClient.ListCompartments(ctx, request)
	if err != nil {
		return providers.CompartmentPage{}, fmt.Errorf("failed to list compartments under %s: %w", parentID, err)
	}

	result := providers.CompartmentPage{}
	for _, item := range response.Items {
		result.Compartments = append(result.Compartments, convertCompartment(item))
	}
	if response.OpcNextPage != nil {
		result.NextPage = *response.OpcNextPage
	}
	return result, nil
}

// GetCompartment fetches a single compartment, used to resolve configured roots.
func (d *Directory) GetCompartment(ctx context.Context, id string) (types.Compartment, error) {
	response, err := d.identityClient.GetCompartment(ctx, identity.GetCompartmentRequest{
		CompartmentId: common.String(id),
	})
	if err != nil {
		return types.Compartment{}, fmt.Errorf("failed to get compartment %s: %w", id, err)
	}
	return convertCompartment(response.Compartment), nil
}

// ListResources lists one page of resources of the given kind.
func (d *Directory) ListResources(ctx context.Context, compartmentID string, kind types.ResourceKind, page string) (providers.ResourcePage, error) {
	switch kind {
	case types.KindDatabase:
		return d.listDatabaseInsights(ctx, compartmentID, page)
	case types.KindHost:
		return d.listHostInsights(ctx, compartmentID, page)
	default:
		return providers.ResourcePage{}, fmt.Errorf("unsupported resource kind %q", kind)
	}
}

// convertCompartment converts an identity compartment to the canonical shape
func convertCompartment(c identity.Compartment) types.Compartment {
	comp := types.Compartment{
		ID:       stringValue(c.Id),
		Name:     stringValue(c.Name),
		ParentID: stringValue(c.CompartmentId),
		State:    string(c.LifecycleState),
	}
	return comp
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ensure Directory implements DirectoryClient
var _ providers.DirectoryClient = (*Directory)(nil)
