// Package realtime pushes events to websocket clients grouped by rooms.
//
// A room is either 'org:<organizationId>' or 'org:<organizationId>:project:<projectId>', clients may only
// join rooms of the organization they connected with.
package realtime
