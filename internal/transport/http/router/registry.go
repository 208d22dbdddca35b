package router

import (
	"sort"

	httpez "user-service/internal/transport/http/ez"
)

// Module mounts a feature's routes: pub is open, priv sits behind the auth gate.
type Module interface {
	Mount(pub, priv httpez.EZ)
}

// prioritizer lets a module control mount order (lower first, default 100).
type prioritizer interface{ Priority() int }

func mountAll(pub, priv httpez.EZ, mods []Module) {
	mods = append([]Module(nil), mods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.Mount(pub, priv)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
