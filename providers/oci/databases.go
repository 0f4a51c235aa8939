package oci

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/opsi"

	"github.com/yairfalse/varasto/providers"
	"github.com/yairfalse/varasto/types"
)

// listDatabaseInsights lists one page of database insights in a compartment
func (d *Directory) listDatabaseInsights(ctx context.Context, compartmentID, page string) (providers.ResourcePage, error) {
	request := opsi.ListDatabaseInsightsRequest{
		CompartmentId: common.String(compartmentID),
	}
	if page != "" {
		request.Page = common.String(page)
	}

	response, err := d.opsiClient.ListDatabaseInsights(ctx, request)
	if err != nil {
		return providers.ResourcePage{}, fmt.Errorf("failed to list database insights in %s: %w", compartmentID, err)
	}

	result := providers.ResourcePage{}
	for _, item := range response.Items {
		result.Resources = append(result.Resources, d.buildDatabaseResource(item))
	}
	if response.OpcNextPage != nil {
		result.NextPage = *response.OpcNextPage
	}
	return result, nil
}

// buildDatabaseResource converts a database insight summary to the canonical
// record. Provider-specific fields the shape doesn't cover go into the
// attribute bag.
func (d *Directory) buildDatabaseResource(insight opsi.DatabaseInsightSummary) types.Resource {
	name := stringValue(insight.GetDatabaseDisplayName())
	if name == "" {
		name = stringValue(insight.GetDatabaseName())
	}

	resource := types.Resource{
		ID:            stringValue(insight.GetDatabaseId()),
		Name:          name,
		Kind:          types.KindDatabase,
		CompartmentID: stringValue(insight.GetCompartmentId()),
		Region:        d.region,
		Status:        normalizeStatus(string(insight.GetStatus()), string(insight.GetLifecycleState())),
		Version:       stringValue(insight.GetDatabaseVersion()),
	}
	if resource.ID == "" {
		// Insights without a database OCID fall back to the insight's own id
		resource.ID = stringValue(insight.GetId())
	}

	setAttrIfSet(&resource, "database_name", stringValue(insight.GetDatabaseName()))
	setAttrIfSet(&resource, "database_type", stringValue(insight.GetDatabaseType()))
	setAttrIfSet(&resource, "insight_id", stringValue(insight.GetId()))
	setAttrIfSet(&resource, "lifecycle_state", string(insight.GetLifecycleState()))
	mergeTags(&resource, insight.GetFreeformTags())

	return resource
}
