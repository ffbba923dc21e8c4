// Package intercept implements the per-observer outbound hook.
//
// One Handle is attached to each observer connection. For every packet the
// host sends to that observer it:
//
//   - forces the glowing bit of entity data packets to the state held in the
//     highlight registry for (entity, observer), without touching the
//     packet the host may be sending to other observers;
//   - tracks which entities the observer can see and the flags the host
//     last sent for them, so the engine can send forced updates built from
//     the host's own flags;
//   - tracks host team membership of entries and keeps engine-colored
//     entries in the engine's team when the host moves them.
//
// Packets that cannot be decoded are forwarded unchanged and reported.
package intercept
