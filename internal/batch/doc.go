// Package batch reads the word list that drives a deck build.
package batch
