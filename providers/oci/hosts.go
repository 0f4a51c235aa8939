package oci

import (
	"context"
	"fmt"
	"sort"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/opsi"

	"github.com/yairfalse/varasto/providers"
	"github.com/yairfalse/varasto/types"
)

// listHostInsights lists one page of host insights in a compartment
func (d *Directory) listHostInsights(ctx context.Context, compartmentID, page string) (providers.ResourcePage, error) {
	request := opsi.ListHostInsightsRequest{
		CompartmentId: common.String(compartmentID),
	}
	if page != "" {
		request.Page = common.String(page)
	}

	response, err := d.opsiClient.ListHostInsights(ctx, request)
	if err != nil {
		return providers.ResourcePage{}, fmt.Errorf("failed to list host insights in %s: %w", compartmentID, err)
	}

	result := providers.ResourcePage{}
	for _, item := range response.Items {
		result.Resources = append(result.Resources, d.buildHostResource(item))
	}
	if response.OpcNextPage != nil {
		result.NextPage = *response.OpcNextPage
	}
	return result, nil
}

// buildHostResource converts a host insight summary to the canonical record
func (d *Directory) buildHostResource(insight opsi.HostInsightSummary) types.Resource {
	name := stringValue(insight.GetHostDisplayName())
	if name == "" {
		name = stringValue(insight.GetHostName())
	}

	resource := types.Resource{
		ID:            stringValue(insight.GetId()),
		Name:          name,
		Kind:          types.KindHost,
		CompartmentID: stringValue(insight.GetCompartmentId()),
		Region:        d.region,
		Status:        normalizeStatus(string(insight.GetStatus()), string(insight.GetLifecycleState())),
		Version:       stringValue(insight.GetHostType()),
	}

	setAttrIfSet(&resource, "host_name", stringValue(insight.GetHostName()))
	setAttrIfSet(&resource, "host_type", stringValue(insight.GetHostType()))
	setAttrIfSet(&resource, "lifecycle_state", string(insight.GetLifecycleState()))
	mergeTags(&resource, insight.GetFreeformTags())

	return resource
}

// normalizeStatus picks the insight status when set, else the lifecycle state.
// Both come back as upper-case enum strings from the service.
func normalizeStatus(status, lifecycleState string) string {
	if status != "" {
		return status
	}
	return lifecycleState
}

func setAttrIfSet(r *types.Resource, key, value string) {
	if value != "" {
		r.SetAttr(key, value)
	}
}

// mergeTags copies freeform tags into the attribute bag under a tag. prefix,
// in sorted order so record contents stay deterministic.
func mergeTags(r *types.Resource, tags map[string]string) {
	if len(tags) == 0 {
		return
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.SetAttr("tag."+k, tags[k])
	}
}
