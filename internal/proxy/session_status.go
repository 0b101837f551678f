package proxy

import (
	"errors"

	"go.beaconmc.dev/beacon/internal/proto"
	"go.beaconmc.dev/beacon/internal/proto/packet"
	"go.beaconmc.dev/beacon/internal/proxyerr"
)

// statusHandler answers a single server-list ping: StatusRequest ->
// StatusResponse, then an optional StatusPing -> StatusPong echo, then the
// connection closes itself (vanilla clients never send anything else on a
// status-state connection).
type statusHandler struct {
	c       *conn
	inbound Inbound
	nopSessionHandler
}

func newStatusHandler(c *conn, inbound Inbound) sessionHandler {
	return &statusHandler{c: c, inbound: inbound}
}

func (h *statusHandler) handlePacket(pc *proto.PacketContext) {
	if !pc.KnownPacket() {
		_ = h.c.closeProto(proxyerr.Silently(proxyerr.KindProtocolViolation, errors.New("unknown packet in status state")))
		return
	}
	switch p := pc.Packet.(type) {
	case *packet.StatusRequest:
		h.handleStatusRequest()
	case *packet.StatusPing:
		h.handleStatusPing(p)
	}
}

func (h *statusHandler) handleStatusRequest() {
	status := h.c.p.buildStatus(h.inbound)
	h.c.p.event.Fire(&PingEvent{inbound: h.inbound, Status: status})

	doc, err := marshalStatus(status)
	if err != nil {
		_ = h.c.close()
		return
	}
	_ = h.c.WritePacket(&packet.StatusResponse{JSON: doc})
}

func (h *statusHandler) handleStatusPing(p *packet.StatusPing) {
	_ = h.c.WritePacket(&packet.StatusPong{Payload: p.Payload})
	_ = h.c.close()
}
