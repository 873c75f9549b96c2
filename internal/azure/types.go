package azure

// Subscription is one entry of the subscription listing.
type Subscription struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscriptionId"`
	DisplayName    string `json:"displayName"`
	State          string `json:"state"`
}

// Location is one entry of the per-subscription location listing.
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// VMSize is one entry of the per-location VM size listing.
type VMSize struct {
	Name           string `json:"name"`
	NumberOfCores  int    `json:"numberOfCores"`
	MemoryInMB     int    `json:"memoryInMB"`
	MaxDataDisks   int    `json:"maxDataDiskCount"`
	OSDiskSizeInMB int    `json:"osDiskSizeInMB"`
}

// ResourceGroup is the body of a resource-group create request/response.
type ResourceGroup struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Location string `json:"location"`
}
