// Package model defines the data structures shared across the crawler.
//
// The central type is Page, which represents one fetched URL through the
// whole worker loop: transport outcome, extracted text, and content hash.
// Keeping the shared types in one dependency-free package avoids import
// cycles between the crawler, storage, and analytics packages.
package model
