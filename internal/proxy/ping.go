package proxy

import (
	"encoding/json"
	"strconv"
	"strings"

	"go.beaconmc.dev/beacon/internal/chat"
	"go.beaconmc.dev/beacon/internal/proto/version"
)

// statusDocument mirrors the vanilla server-list-ping JSON shape.
type statusDocument struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int                  `json:"max"`
		Online int                  `json:"online"`
		Sample []statusSamplePlayer `json:"sample,omitempty"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
	Favicon     string          `json:"favicon,omitempty"`
}

type statusSamplePlayer struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// buildStatus assembles the default ServerPing document for inbound before
// any PingEvent subscriber has had a chance to rewrite it.
func (p *Proxy) buildStatus(inbound Inbound) *ServerPing {
	pv := inbound.Protocol()
	cfg := p.Config()

	var name string
	if version.Supported(pv) {
		name = version.FallbackVersionName(pv)
	} else {
		name = renderFallbackVersionPing(cfg.FallbackVersionPing, cfg.ServerBrand)
	}

	var fav string
	if p.favicon != "" {
		fav = p.favicon.String()
	}

	return &ServerPing{
		VersionName:     name,
		VersionProtocol: int(pv),
		MaxPlayers:      cfg.ShowMaxPlayers,
		OnlinePlayers:   p.players.Len(),
		DescriptionJSON: chat.Text(pv, cfg.MOTD),
		Favicon:         fav,
	}
}

// renderFallbackVersionPing substitutes the configured template's
// placeholders for a client whose declared protocol falls outside
// [version.MinimumVersion, version.MaximumVersion], per §4.8.
func renderFallbackVersionPing(template, brand string) string {
	r := strings.NewReplacer(
		"{proxy-brand}", brand,
		"{protocol-min}", strconv.Itoa(int(version.MinimumVersion.Protocol)),
		"{protocol-max}", strconv.Itoa(int(version.MaximumVersion.Protocol)),
	)
	return r.Replace(template)
}

// marshalStatus renders s as the JSON document written on the wire for a
// StatusResponse packet.
func marshalStatus(s *ServerPing) (string, error) {
	doc := statusDocument{}
	doc.Version.Name = s.VersionName
	doc.Version.Protocol = s.VersionProtocol
	doc.Players.Max = s.MaxPlayers
	doc.Players.Online = s.OnlinePlayers
	doc.Favicon = s.Favicon
	doc.Description = json.RawMessage(s.DescriptionJSON)
	for _, gp := range s.SamplePlayers {
		doc.Players.Sample = append(doc.Players.Sample, statusSamplePlayer{Name: gp.Name, ID: gp.ID.String()})
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
