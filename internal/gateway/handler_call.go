// handler_call.go
// 通话信令事件：邀请、应答、ICE 候选、开关状态、挂断
// 网关只做负载校验，转发逻辑在 call.Relay
package gateway

import (
	"context"
	"encoding/json"

	"linkup_social_server/internal/dto/request"
)

func (g *Gateway) handleCallOffer(ctx context.Context, c *Conn, data json.RawMessage) error {
	fromUserId, err := c.requireRegistered()
	if err != nil {
		return err
	}
	var req request.CallOfferRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	g.relay.RelayOffer(ctx, fromUserId, req)
	return nil
}

func (g *Gateway) handleCallAnswer(ctx context.Context, c *Conn, data json.RawMessage) error {
	fromUserId, err := c.requireRegistered()
	if err != nil {
		return err
	}
	var req request.CallAnswerRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	g.relay.RelayAnswer(ctx, fromUserId, req)
	return nil
}

func (g *Gateway) handleCallIceCandidate(ctx context.Context, c *Conn, data json.RawMessage) error {
	fromUserId, err := c.requireRegistered()
	if err != nil {
		return err
	}
	var req request.CallIceCandidateRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	g.relay.RelayIceCandidate(ctx, fromUserId, req)
	return nil
}

func (g *Gateway) handleCallToggleMic(ctx context.Context, c *Conn, data json.RawMessage) error {
	fromUserId, err := c.requireRegistered()
	if err != nil {
		return err
	}
	var req request.CallToggleRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	g.relay.RelayMicToggle(ctx, fromUserId, req)
	return nil
}

func (g *Gateway) handleCallToggleVideo(ctx context.Context, c *Conn, data json.RawMessage) error {
	fromUserId, err := c.requireRegistered()
	if err != nil {
		return err
	}
	var req request.CallToggleRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	g.relay.RelayVideoToggle(ctx, fromUserId, req)
	return nil
}

func (g *Gateway) handleCallEnd(ctx context.Context, c *Conn, data json.RawMessage) error {
	fromUserId, err := c.requireRegistered()
	if err != nil {
		return err
	}
	var req request.CallEndRequest
	if err := g.bind(data, &req); err != nil {
		return err
	}
	g.relay.RelayCallEnd(ctx, fromUserId, req)
	return nil
}
