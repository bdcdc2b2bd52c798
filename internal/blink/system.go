package blink

import "context"

// System binds one home-screen snapshot to the Session that fetched it and
// exposes arm/disarm by network position.
//
// The snapshot is never refreshed: index N always means the Nth network as
// ordered at fetch time, and the Armed flags are not updated after a
// command. To observe current state, fetch a new home screen and build a new
// System with NewSystem.
type System struct {
	session    *Session
	homeScreen *HomeScreen
}

// NewSystem binds a home screen to a session.
func NewSystem(session *Session, homeScreen *HomeScreen) *System {
	if homeScreen == nil {
		homeScreen = &HomeScreen{}
	}
	return &System{session: session, homeScreen: homeScreen}
}

// ArmNetwork arms the network at position index in the snapshot.
func (sys *System) ArmNetwork(ctx context.Context, index int) (*CommandResponse, error) {
	network, err := sys.Network(index)
	if err != nil {
		return nil, err
	}
	return sys.session.ArmNetwork(ctx, network.ID)
}

// DisarmNetwork disarms the network at position index in the snapshot.
func (sys *System) DisarmNetwork(ctx context.Context, index int) (*CommandResponse, error) {
	network, err := sys.Network(index)
	if err != nil {
		return nil, err
	}
	return sys.session.DisarmNetwork(ctx, network.ID)
}

// Network resolves an index against the snapshot's network list.
//
// Returns:
//   - Network: the network at that position
//   - error: ErrNoNetworks if the list is empty, ErrNetworkIndexOutOfRange otherwise
func (sys *System) Network(index int) (Network, error) {
	networks := sys.homeScreen.Networks
	if len(networks) == 0 {
		return Network{}, &Error{Kind: KindNoNetworks}
	}
	if index < 0 || index >= len(networks) {
		return Network{}, &Error{Kind: KindNetworkIndexOutOfRange, Index: index}
	}
	return networks[index], nil
}

// Networks returns a copy of the snapshot's networks in fetch order.
func (sys *System) Networks() []Network {
	out := make([]Network, len(sys.homeScreen.Networks))
	copy(out, sys.homeScreen.Networks)
	return out
}

// NetworkCount returns the number of networks in the snapshot.
func (sys *System) NetworkCount() int {
	return len(sys.homeScreen.Networks)
}

// HomeScreen returns the bound snapshot. Callers must treat it as read-only.
func (sys *System) HomeScreen() *HomeScreen {
	return sys.homeScreen
}

// Session returns the session this system delegates to.
func (sys *System) Session() *Session {
	return sys.session
}
