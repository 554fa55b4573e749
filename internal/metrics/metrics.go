package metrics

// Namespace prefixes every metric exported by the service.
const Namespace = "contextq"
