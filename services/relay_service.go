package services

import (
	"broadcast-relay/contract"
	"broadcast-relay/domain"
	"context"
)

// IRelayService is what the transport sees of the relay.
type IRelayService interface {
	Join(conn contract.Connection) error
	Post(ctx context.Context, sender domain.ConnectionID, content string) error
	Leave(conn contract.Connection)
	Connections() int
}

type RelayService struct {
	relay contract.IRelay
}

func NewRelayService(relay contract.IRelay) *RelayService {
	return &RelayService{relay: relay}
}

func (s *RelayService) Join(conn contract.Connection) error {
	return s.relay.RegisterConnection(conn)
}

// Post stamps the raw text as a Message and queues it for broadcast.
// The content is not validated: empty input is filtered on the sending side.
func (s *RelayService) Post(ctx context.Context, sender domain.ConnectionID, content string) error {
	return s.relay.Submit(ctx, domain.NewMessage(sender, content))
}

func (s *RelayService) Leave(conn contract.Connection) {
	s.relay.Unregister(conn)
}

func (s *RelayService) Connections() int {
	return s.relay.Connections()
}
