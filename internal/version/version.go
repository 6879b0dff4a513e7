package version

// Current is the released version of profilescraper.
const Current = "0.1.0"
