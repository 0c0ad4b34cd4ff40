// Package registration persists the hub assignments handed out by the
// provisioning service.
//
// Each completed provisioning run appends one Assignment row. The newest
// row for a registration id is the one a device uses on its next boot.
package registration
