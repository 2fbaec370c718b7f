package gql

// Wire shapes. Every field is optional upstream; pointers mark the ones
// whose absence carries meaning.

type wireGame struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Slug        string `json:"slug"`
	BoxArtURL   string `json:"boxArtURL"`
}

type wireBenefit struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ImageAssetURL string `json:"imageAssetURL"`
}

type wireBenefitEdge struct {
	Benefit wireBenefit `json:"benefit"`
}

type wireDropSelf struct {
	CurrentMinutesWatched int    `json:"currentMinutesWatched"`
	IsClaimed             bool   `json:"isClaimed"`
	DropInstanceID        string `json:"dropInstanceID"`
	HasPreconditionsMet   *bool  `json:"hasPreconditionsMet"`
}

type wireTimeDrop struct {
	ID                     string            `json:"id"`
	Name                   string            `json:"name"`
	RequiredMinutesWatched *int              `json:"requiredMinutesWatched"`
	RequiredSubs           int               `json:"requiredSubs"`
	EndAt                  string            `json:"endAt"`
	BenefitEdges           []wireBenefitEdge `json:"benefitEdges"`
	Self                   *wireDropSelf     `json:"self"`
}

type wireChannel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Login       string `json:"login"`
	DisplayName string `json:"displayName"`
}

type wireAllow struct {
	IsEnabled bool          `json:"isEnabled"`
	Channels  []wireChannel `json:"channels"`
}

type wireCampaign struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Status         string         `json:"status"`
	EndAt          string         `json:"endAt"`
	Game           *wireGame      `json:"game"`
	Allow          *wireAllow     `json:"allow"`
	TimeBasedDrops []wireTimeDrop `json:"timeBasedDrops"`
}

type wireEventDrop struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ImageURL     string `json:"imageURL"`
	LastAwarded  string `json:"lastAwardedAt"`
	TotalCount   int    `json:"totalCount"`
	IsConnected  bool   `json:"isConnected"`
	RequiredSubs int    `json:"requiredSubs"`
}

type inventoryData struct {
	CurrentUser *struct {
		ID        string `json:"id"`
		Inventory *struct {
			DropCampaignsInProgress []wireCampaign  `json:"dropCampaignsInProgress"`
			GameEventDrops          []wireEventDrop `json:"gameEventDrops"`
		} `json:"inventory"`
	} `json:"currentUser"`
}

type dashboardData struct {
	CurrentUser *struct {
		ID            string         `json:"id"`
		DropCampaigns []wireCampaign `json:"dropCampaigns"`
	} `json:"currentUser"`
}

type detailsData struct {
	User *struct {
		DropCampaign *wireCampaign `json:"dropCampaign"`
	} `json:"user"`
}

type wireStreamNode struct {
	ID              string       `json:"id"`
	Type            string       `json:"type"`
	ViewersCount    *int         `json:"viewersCount"`
	PreviewImageURL string       `json:"previewImageURL"`
	Broadcaster     *wireChannel `json:"broadcaster"`
}

type directoryData struct {
	Game *struct {
		Streams *struct {
			Edges []struct {
				Node wireStreamNode `json:"node"`
			} `json:"edges"`
		} `json:"streams"`
	} `json:"game"`
}

type claimData struct {
	ClaimDropRewards *struct {
		Status string `json:"status"`
	} `json:"claimDropRewards"`
}

type streamMetadataData struct {
	User *struct {
		ID     string `json:"id"`
		Login  string `json:"login"`
		Stream *struct {
			ID   string    `json:"id"`
			Type string    `json:"type"`
			Game *wireGame `json:"game"`
		} `json:"stream"`
	} `json:"user"`
}

type availableDropsData struct {
	Channel *struct {
		ID                  string          `json:"id"`
		ViewerDropCampaigns *[]wireCampaign `json:"viewerDropCampaigns"`
	} `json:"channel"`
}

type playbackTokenData struct {
	StreamPlaybackAccessToken *struct {
		Value     string `json:"value"`
		Signature string `json:"signature"`
	} `json:"streamPlaybackAccessToken"`
}

type validateBody struct {
	ClientID  string `json:"client_id"`
	Login     string `json:"login"`
	UserID    string `json:"user_id"`
	ExpiresIn int    `json:"expires_in"`
}
