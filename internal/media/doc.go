// Package media inspects uploaded media and produces thumbnails.
//
// Thumbnails are fit-inside JPEGs generated with libvips when it has been
// initialized, and with the pure-Go imaging library otherwise.
package media
