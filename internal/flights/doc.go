// Package flights partitions a roster into bounded flights.
//
// Athletes with a weigh-in are grouped by (gender, weight class). Each
// group is split into evenly sized chunks of at most MaxSize athletes in
// lot order, and every chunk yields one flight per lift sharing the same
// athlete set. Groups with no eligible athletes produce no flights.
//
// Balance is pure. Regenerate replaces the stored flights for a
// competition through a meet.FlightRepository.
package flights
