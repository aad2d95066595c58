// Package mission implements the mission upload engine, the resume
// planner, and the mission file parser.
//
// Uploads run the count/request/item/ack handshake over the primary link
// only. A global semaphore bounds concurrent uploads so a low-bandwidth
// radio is never saturated by several vehicles at once; the slot is held
// for the whole session and released on every exit path.
package mission
