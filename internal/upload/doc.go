// Package upload stores uploaded photos and videos.
//
// A request is validated as a whole before anything is written. Accepted
// files are saved under a generated name, measured and thumbnailed when they
// are images, optionally pushed to object storage, and recorded in the
// database one at a time. A failure on one file does not undo the files
// processed before it.
package upload
