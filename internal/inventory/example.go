package inventory

// ExampleJSON is the starter devices.json written by the init command.
// Reserved keys are ip, port, username, ssh_config, and auth; every other
// key rides along as metadata and shows up in the redacted listing.
const ExampleJSON = `{
  "router1": {
    "ip": "192.0.2.10",
    "port": 22,
    "username": "fleetwatch",
    "auth": {
      "type": "password",
      "password": "change-me"
    },
    "model": "mx204",
    "site": "lab"
  },
  "router2": {
    "ip": "192.0.2.11",
    "username": "fleetwatch",
    "auth": {
      "type": "ssh_key",
      "private_key_path": "/home/fleetwatch/.ssh/id_ed25519"
    },
    "model": "srx340",
    "site": "lab"
  }
}
`
