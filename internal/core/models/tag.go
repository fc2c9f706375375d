package models

import "fmt"

// Tag identifies a capability. Values are stable: they double as the component
// tag byte on the wire, so existing values must never be renumbered.
type Tag uint8

const (
	// TagNone terminates an entity's component list on the wire.
	TagNone Tag = iota
	TagPosition
	TagAnimation
	TagEngine
	TagGravityAffected
	TagLifetime
	TagCombat
	TagWeapon
	TagProjectile
	TagTeam
	TagWorld
	TagNetworking
	TagClientNetworking
	TagGravityWell

	TagCount
)

var tagNames = [TagCount]string{
	TagNone:             "none",
	TagPosition:         "position",
	TagAnimation:        "animation",
	TagEngine:           "engine",
	TagGravityAffected:  "gravity-affected",
	TagLifetime:         "lifetime",
	TagCombat:           "combat",
	TagWeapon:           "weapon",
	TagProjectile:       "projectile",
	TagTeam:             "team",
	TagWorld:            "world",
	TagNetworking:       "networking",
	TagClientNetworking: "client-networking",
	TagGravityWell:      "gravity-well",
}

func (t Tag) String() string {
	if t < TagCount {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Valid reports whether t names a capability (TagNone excluded).
func (t Tag) Valid() bool {
	return t > TagNone && t < TagCount
}
