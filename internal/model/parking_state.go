package model

// ParkingState is one row of the admin parking-state report.
type ParkingState struct {
	ID                      string `json:"zoneId"`
	Name                    string `json:"name"`
	CategoryID              string `json:"categoryId"`
	TotalSlots              int    `json:"totalSlots"`
	Occupied                int    `json:"occupied"`
	Free                    int    `json:"free"`
	Reserved                int    `json:"reserved"`
	AvailableForVisitors    int    `json:"availableForVisitors"`
	AvailableForSubscribers int    `json:"availableForSubscribers"`
	SubscriberCount         int    `json:"subscriberCount"`
	Open                    bool   `json:"open"`
}

// Key returns the registry key of the row.
func (p ParkingState) Key() string {
	return p.ID
}
