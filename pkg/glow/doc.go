// Package glow is the selective highlight engine.
//
// An Engine makes chosen entities, and optionally block positions, glow for
// chosen observers only. Each observer connection carries an interceptor
// that forces the glowing bit of outbound entity data to match the engine's
// registry; colors come from reserved teams that exist only on the
// observer's client.
//
// # Lifecycle
//
//	eng, err := glow.Initialize(host, glow.DefaultConfig())
//	if err != nil {
//		// glow.ErrUnsupportedVersion: the engine cannot run on this host
//	}
//	defer eng.Shutdown()
//
//	eng.OnObserverConnected(conn)
//	eng.SetHighlight(entity, conn.ID(), protocol.Red.Ptr())
//
// The host reports connection, removal and chunk events through the On*
// methods. Every operation after Shutdown fails with ErrEngineClosed.
//
// # Team names
//
// Engine teams live in a reserved namespace (see team.Name). The
// interceptor forwards host team packets for those names unchanged, so a
// host must pass every team name it creates or joins through
// team.ValidateApplicationName and refuse the ones it rejects.
package glow
