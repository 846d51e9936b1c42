package email

const subjectInvite = "You have been added to Agency OS"
