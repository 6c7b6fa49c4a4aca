package common

// StorageKey is the durable key under which the encrypted vault envelope is kept.
const StorageKey = "twofa.vault"

// MinPasswordLength is the shortest master password accepted by unlock.
const MinPasswordLength = 8
