// Package router implements the crawl state machine.
//
// ROOT handles the bootstrap page and starts one search per target location.
// SEARCH paginates a location and fans out to its listings. LISTING turns a
// property detail payload into a model.PropertyRecord and pushes it to the
// output sink. Dispatch is a switch on the closed model.Label enum.
package router
