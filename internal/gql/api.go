package gql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Noooste/azuretls-client"
	"github.com/gosimple/slug"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/model"
)

const directoryLimit = 30

func (c *Client) sessionHeaders(sess model.Session) azuretls.OrderedHeaders {
	return c.headers(sess.OAuthToken, sess.DeviceID, sess.SessionUUID, sess.IntegrityToken)
}

// FetchSnapshot implements engine.GraphQL. A light fetch reads the
// inventory only; a full fetch adds the campaign dashboard and per-campaign
// details, which carry the channel allow-lists.
func (c *Client) FetchSnapshot(ctx context.Context, sess model.Session, full bool) (model.Snapshot, error) {
	h := c.sessionHeaders(sess)
	now := c.now()

	inv, err := c.inventory(ctx, h)
	if err != nil {
		return model.Snapshot{}, err
	}

	snap := model.Snapshot{FetchedAt: now, Full: full}
	gamesByKey := map[string]int{}
	addGame := func(g model.Campaign) {
		if g.Expired(now) {
			return
		}
		if i, ok := gamesByKey[g.Key()]; ok {
			if snap.Games[i].AllowedChannels == nil {
				snap.Games[i].AllowedChannels = g.AllowedChannels
			}
			return
		}
		gamesByKey[g.Key()] = len(snap.Games)
		snap.Games = append(snap.Games, g)
	}

	awarded := map[string]bool{}
	if inv.CurrentUser.Inventory != nil {
		awarded = awardedBenefits(inv.CurrentUser.Inventory.GameEventDrops)
		for _, wc := range inv.CurrentUser.Inventory.DropCampaignsInProgress {
			addGame(toCampaign(wc, now))
			snap.Drops = append(snap.Drops, toDrops(wc, model.SourceInventory, nil)...)
		}
	}
	if !full {
		return snap, nil
	}

	dash, err := c.dashboard(ctx, h)
	if err != nil {
		return model.Snapshot{}, err
	}
	var ids []string
	for _, wc := range dash {
		if !activeCampaign(wc, now) {
			continue
		}
		addGame(toCampaign(wc, now))
		ids = append(ids, wc.ID)
	}

	details, err := c.details(ctx, h, sess.UserID, ids)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap.AllowList = map[string][]string{}
	for _, wc := range details {
		g := toCampaign(wc, now)
		if i, ok := gamesByKey[g.Key()]; ok {
			snap.Games[i].DropCount = g.DropCount
			snap.Games[i].AllowedChannels = g.AllowedChannels
		}
		if g.AllowedChannels != nil {
			snap.AllowList[wc.ID] = g.AllowedChannels
		}
		snap.Drops = append(snap.Drops, toDrops(wc, model.SourceCampaign, awarded)...)
	}

	slog.Debug("snapshot fetched", "full", full, "games", len(snap.Games), "drops", len(snap.Drops))
	return snap, nil
}

func (c *Client) inventory(ctx context.Context, h azuretls.OrderedHeaders) (inventoryData, error) {
	req, err := c.op(OpInventory, map[string]any{"fetchRewardCampaigns": false})
	if err != nil {
		return inventoryData{}, err
	}
	resps, err := c.post(ctx, "inventory", h, req)
	if err != nil {
		return inventoryData{}, err
	}
	inv, err := decode[inventoryData]("inventory", resps[0])
	if err != nil {
		return inventoryData{}, err
	}
	if inv.CurrentUser == nil {
		return inventoryData{}, engine.NewRemoteError(engine.ErrCodeAuth, "inventory", errNoUser)
	}
	return inv, nil
}

func (c *Client) dashboard(ctx context.Context, h azuretls.OrderedHeaders) ([]wireCampaign, error) {
	req, err := c.op(OpDashboard, map[string]any{"fetchRewardCampaigns": false})
	if err != nil {
		return nil, err
	}
	resps, err := c.post(ctx, "dashboard", h, req)
	if err != nil {
		return nil, err
	}
	dash, err := decode[dashboardData]("dashboard", resps[0])
	if err != nil {
		return nil, err
	}
	if dash.CurrentUser == nil {
		return nil, engine.NewRemoteError(engine.ErrCodeAuth, "dashboard", errNoUser)
	}
	return dash.CurrentUser.DropCampaigns, nil
}

// details fetches campaign details in batches. A campaign whose detail
// query fails is skipped; a failed batch fails the fetch.
func (c *Client) details(ctx context.Context, h azuretls.OrderedHeaders, userID string, ids []string) ([]wireCampaign, error) {
	var out []wireCampaign
	for start := 0; start < len(ids); start += c.cfg.DetailBatch {
		end := min(start+c.cfg.DetailBatch, len(ids))
		reqs := make([]request, 0, end-start)
		for _, id := range ids[start:end] {
			req, err := c.op(OpCampaignDetails, map[string]any{"dropID": id, "channelLogin": userID})
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, req)
		}
		resps, err := c.post(ctx, "campaign_details", h, reqs...)
		if err != nil {
			return nil, err
		}
		for i, r := range resps {
			d, err := decode[detailsData]("campaign_details", r)
			if err != nil || d.User == nil || d.User.DropCampaign == nil {
				slog.Debug("campaign details skipped", "campaign_id", ids[start+i], "error", err)
				continue
			}
			out = append(out, *d.User.DropCampaign)
		}
	}
	return out, nil
}

// FetchDirectoryStreamers implements engine.GraphQL.
func (c *Client) FetchDirectoryStreamers(ctx context.Context, sess model.Session, game model.Campaign) ([]model.Streamer, error) {
	category := strings.TrimSpace(game.CategorySlug)
	if category == "" {
		category = slug.Make(game.Name)
	}
	if category == "" {
		return nil, engine.NewRemoteError(engine.ErrCodeNotFound, "directory", errors.New("campaign has no category"))
	}

	req, err := c.op(OpDirectory, map[string]any{
		"slug":       category,
		"imageWidth": 50,
		"limit":      directoryLimit,
		"options": map[string]any{
			"sort":              "VIEWER_COUNT",
			"systemFilters":     []string{"DROPS_ENABLED"},
			"includeRestricted": []string{"SUB_ONLY_LIVE"},
			"freeformTags":      nil,
			"tags":              []string{},
		},
		"sortTypeIsRecency": false,
	})
	if err != nil {
		return nil, err
	}
	resps, err := c.post(ctx, "directory", c.sessionHeaders(sess), req)
	if err != nil {
		return nil, err
	}
	dir, err := decode[directoryData]("directory", resps[0])
	if err != nil {
		return nil, err
	}
	if dir.Game == nil {
		return nil, engine.NewRemoteError(engine.ErrCodeNotFound, "directory", fmt.Errorf("category %q not found", category))
	}

	var out []model.Streamer
	if dir.Game.Streams != nil {
		for _, e := range dir.Game.Streams.Edges {
			if s, ok := toStreamer(e.Node); ok {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// ClaimReward implements engine.GraphQL. An already-claimed instance counts
// as success.
func (c *Client) ClaimReward(ctx context.Context, sess model.Session, claimID string) error {
	req, err := c.op(OpClaim, map[string]any{"input": map[string]any{"dropInstanceID": claimID}})
	if err != nil {
		return err
	}
	resps, err := c.post(ctx, "claim_reward", c.sessionHeaders(sess), req)
	if err != nil {
		return err
	}
	res, err := decode[claimData]("claim_reward", resps[0])
	if err != nil {
		return err
	}
	if res.ClaimDropRewards == nil {
		return &engine.RemoteError{Code: engine.ErrCodeTransient, Op: "claim_reward", Message: "claim rejected"}
	}
	switch res.ClaimDropRewards.Status {
	case claimEligible, claimAlreadyClaimed:
		return nil
	default:
		return &engine.RemoteError{
			Code:    engine.ErrCodeTransient,
			Op:      "claim_reward",
			Message: "claim status " + res.ClaimDropRewards.Status,
		}
	}
}

// StreamInfo is one reading of a channel's broadcast.
type StreamInfo struct {
	Login     string
	ChannelID string
	Live      bool
	GameName  string

	// DropsEnabled is nil when the drop availability query gave no answer.
	DropsEnabled *bool
}

// StreamInfo reports whether login is live and whether its stream is
// eligible for drops.
func (c *Client) StreamInfo(ctx context.Context, sess model.Session, login string) (StreamInfo, error) {
	h := c.sessionHeaders(sess)
	req, err := c.op(OpStreamMetadata, map[string]any{"channelLogin": login})
	if err != nil {
		return StreamInfo{}, err
	}
	resps, err := c.post(ctx, "stream_metadata", h, req)
	if err != nil {
		return StreamInfo{}, err
	}
	md, err := decode[streamMetadataData]("stream_metadata", resps[0])
	if err != nil {
		return StreamInfo{}, err
	}
	if md.User == nil {
		return StreamInfo{}, engine.NewRemoteError(engine.ErrCodeNotFound, "stream_metadata", fmt.Errorf("channel %q not found", login))
	}

	info := StreamInfo{Login: strings.ToLower(md.User.Login), ChannelID: md.User.ID}
	if info.Login == "" {
		info.Login = strings.ToLower(login)
	}
	if md.User.Stream != nil {
		info.Live = md.User.Stream.Type == "" || strings.EqualFold(md.User.Stream.Type, "live")
		info.GameName = gameName(md.User.Stream.Game)
	}
	if !info.Live || info.ChannelID == "" {
		return info, nil
	}

	enabled, err := c.dropsEnabled(ctx, h, info.ChannelID)
	if err != nil {
		slog.Debug("drop availability unknown", "channel", info.Login, "error", err)
		return info, nil
	}
	info.DropsEnabled = enabled
	return info, nil
}

func (c *Client) dropsEnabled(ctx context.Context, h azuretls.OrderedHeaders, channelID string) (*bool, error) {
	req, err := c.op(OpAvailableDrops, map[string]any{"channelID": channelID})
	if err != nil {
		return nil, err
	}
	resps, err := c.post(ctx, "available_drops", h, req)
	if err != nil {
		return nil, err
	}
	res, err := decode[availableDropsData]("available_drops", resps[0])
	if err != nil {
		return nil, err
	}
	if res.Channel == nil || res.Channel.ViewerDropCampaigns == nil {
		return nil, nil
	}
	enabled := len(*res.Channel.ViewerDropCampaigns) > 0
	return &enabled, nil
}

// PlaybackToken requests a live playback token for login, which keeps the
// channel's viewing session warm.
func (c *Client) PlaybackToken(ctx context.Context, sess model.Session, login string) (string, error) {
	req, err := c.op(OpPlaybackToken, map[string]any{
		"isLive":     true,
		"login":      login,
		"isVod":      false,
		"vodID":      "",
		"playerType": "site",
	})
	if err != nil {
		return "", err
	}
	resps, err := c.post(ctx, "playback_token", c.sessionHeaders(sess), req)
	if err != nil {
		return "", err
	}
	res, err := decode[playbackTokenData]("playback_token", resps[0])
	if err != nil {
		return "", err
	}
	if res.StreamPlaybackAccessToken == nil || res.StreamPlaybackAccessToken.Value == "" {
		return "", &engine.RemoteError{Code: engine.ErrCodeNotFound, Op: "playback_token", Message: "channel offline"}
	}
	return res.StreamPlaybackAccessToken.Value, nil
}

// ValidateToken implements session.Validator.
func (c *Client) ValidateToken(ctx context.Context, token string) (string, error) {
	h := azuretls.OrderedHeaders{
		{"accept", "application/json"},
		{"authorization", "OAuth " + token},
		{"user-agent", c.cfg.UserAgent},
	}
	status, raw, err := c.doer.Do(ctx, http.MethodGet, c.cfg.ValidateURL, h, nil)
	if err != nil {
		return "", engine.NewRemoteError(engine.ErrCodeTransient, "validate_token", err)
	}
	if err := classifyStatus("validate_token", status, raw); err != nil {
		return "", err
	}
	var body validateBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", engine.NewRemoteError(engine.ErrCodeTransient, "validate_token", fmt.Errorf("decode: %w", err))
	}
	if body.ClientID != "" && body.ClientID != c.cfg.ClientID {
		slog.Warn("token issued for a different client", "token_client_id", body.ClientID, "client_id", c.cfg.ClientID)
	}
	return body.UserID, nil
}
