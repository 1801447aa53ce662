// Package image acquires one representative picture per word.
//
// A Crawler writes a single 000001.<ext> file into a directory it is given;
// the Fetcher retries it a bounded number of times inside an isolated crawl
// directory per word and renames the result into the word's scratch dir.
package image
