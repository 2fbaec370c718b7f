package gql

// Operation names.
const (
	OpInventory       = "Inventory"
	OpDashboard       = "ViewerDropsDashboard"
	OpCampaignDetails = "DropCampaignDetails"
	OpDirectory       = "DirectoryPage_Game"
	OpClaim           = "DropsPage_ClaimDropRewards"
	OpStreamMetadata  = "StreamMetadata"
	OpAvailableDrops  = "DropsHighlightService_AvailableDrops"
	OpPlaybackToken   = "PlaybackAccessToken"
)

// DefaultOperations are the persisted query hashes known to work at
// release time. Upstream rotates them; override through configuration.
var DefaultOperations = map[string]string{
	OpInventory:       "09acb7d3d7e605a92bdfdcc465f6aa481b71c234d8686a9ba38ea5ed51507592",
	OpDashboard:       "5a4da2ab3d5b47c9f9ce864e727b2cb346af1e3ea8b897fe8f704a97ff017619",
	OpCampaignDetails: "039277bf98f3130929262cc7c6efd9c141ca3749cb6dca442fc8ead9a53f77c1",
	OpDirectory:       "c7c9d5aad09155c4161d2382092dc44610367f3536aac39019ec2582ae5065f9",
	OpClaim:           "a455deea71bdc9015b78eb49f4acfbce8baa7ccbedd28e549bb025bd0f751930",
	OpStreamMetadata:  "252a46e3f5b1ddc431b396e688331d8d020daec27079893ac7d4e6db759a7402",
	OpAvailableDrops:  "9a62a09bce5b53e26e64a671e530bc599cb6aab1e5ba3cbd5d85966d3940716f",
	OpPlaybackToken:   "ed230aa1e33e07eebb8928504583da78a5173989fadfb1ac94be06a04f3cdbe9",
}

// Claim statuses reported by the claim mutation.
const (
	claimEligible       = "ELIGIBLE_FOR_ALL"
	claimAlreadyClaimed = "DROP_INSTANCE_ALREADY_CLAIMED"
)
