package e2e

import (
	"broadcast-relay/errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type testBroadcastSuite struct {
	BaseRelaySuite
}

func TestBroadcastSuite(t *testing.T) {
	suite.Run(t, &testBroadcastSuite{})
}

func (s *testBroadcastSuite) TestFullBroadcastFlow() {
	alice := s.Connect("alice")
	bob := s.Connect("bob")
	s.AwaitConnections(2)

	// --- STEP 1: EVERYONE RECEIVES, SENDER INCLUDED ---
	s.Run("Step 1: Alice's message reaches Alice and Bob", func() {
		s.Require().NoError(alice.Send("hello from alice"))
		s.Require().Equal([]string{"hello from alice"}, s.Await(alice, 1))
		s.Require().Equal([]string{"hello from alice"}, s.Await(bob, 1))
	})

	// --- STEP 2: NO HISTORY FOR LATE JOINERS ---
	s.Run("Step 2: Carol joins and only sees what comes next", func() {
		carol := s.Connect("carol")
		s.AwaitConnections(3)

		s.Require().NoError(bob.Send("welcome carol"))
		s.Require().Equal([]string{"welcome carol"}, s.Await(carol, 1))
		s.Require().Equal([]string{"hello from alice", "welcome carol"}, s.Await(alice, 2))
	})

	// --- STEP 3: EMPTY INPUT NEVER LEAVES THE CLIENT ---
	s.Run("Step 3: Empty message is declined client side", func() {
		s.Require().ErrorIs(alice.Send(""), errors.ErrEmptyMessage)
	})

	// --- STEP 4: A DISCONNECT DOES NOT DISTURB THE OTHERS ---
	s.Run("Step 4: Bob leaves, Alice keeps talking", func() {
		// Carol was closed with the end of step 2.
		s.Require().NoError(bob.Close())
		s.AwaitConnections(1)

		s.Require().NoError(alice.Send("bob left"))
		s.Require().Equal("bob left", s.Await(alice, 3)[2])
	})
}
