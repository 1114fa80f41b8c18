// Package gallery stores published decal designs and their moderation
// status for the community gallery.
package gallery
