// Package simplerights provides a rights enforcement library for digital
// assets: licensing status classification, expiry detection, download
// validation and compliance reporting.
//
// The pure functions GetRightsStatus, GetExpiringRights,
// ValidateDownloadRequest and GenerateRightsReport take the current time as an
// argument and never read the wall clock. Engine binds them to a Clock.
//
// Service layers persistence on top of the engine. Repository implementations
// (memory, Postgres) live under repo/ and report archive blob stores (memory,
// filesystem, S3) under storage/.
//
// Territories
//
// AllowedTerritories is a TerritoryScope: either the worldwide marker or an
// explicit set of ISO 3166-1 alpha-2 codes. An explicit empty set permits no
// territory. In JSON the worldwide marker is the string "worldwide".
package simplerights
